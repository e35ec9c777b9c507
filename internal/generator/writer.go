package generator

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// WriteDataset serializes the dataset into stations.csv and seed.sql under
// the provided directory. The CSV matches the station directory format, the
// SQL seeds the tables the store queries at runtime.
func WriteDataset(dataset Dataset, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	if err := writeFile(filepath.Join(dir, "stations.csv"), func(w io.Writer) error {
		return WriteStationsCSV(w, dataset)
	}); err != nil {
		return err
	}

	return writeFile(filepath.Join(dir, "seed.sql"), func(w io.Writer) error {
		return WriteSeedSQL(w, dataset)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	if err := write(file); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteStationsCSV writes the generated stations in the semicolon-separated
// format the station directory loads.
func WriteStationsCSV(w io.Writer, dataset Dataset) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	header := []string{
		"id", "name", "slug", "latitude", "longitude",
		"country", "db_id", "uic", "is_main_station", "is_suggestable",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, s := range dataset.Stations {
		record := []string{
			s.ID,
			s.Name,
			s.Slug,
			fmt.Sprintf("%.6f", s.Latitude),
			fmt.Sprintf("%.6f", s.Longitude),
			s.Country,
			s.DBID,
			s.UIC,
			boolFlag(s.IsMainStation),
			"t",
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

const seedSchemaSQL = `CREATE TABLE IF NOT EXISTS planet_osm_nodes (id bigint PRIMARY KEY, lat double precision, lon double precision);
CREATE TABLE IF NOT EXISTS planet_osm_ways (id bigint PRIMARY KEY, nodes bigint[], tags jsonb);
CREATE TABLE IF NOT EXISTS station_platform_ways (station_name text, relation_id bigint, way_id bigint);
CREATE TABLE IF NOT EXISTS station_ways_with_nodes (relation_id bigint, station_name text, way_id bigint, nodes bigint[]);
CREATE TABLE IF NOT EXISTS station_ways_with_nodes_plus_pedestrian (relation_id bigint, station_name text, way_id bigint, nodes bigint[]);
CREATE TABLE IF NOT EXISTS station_way_segments (relation_id bigint, station_name text, node_from bigint, node_to bigint, way_id bigint);
CREATE TABLE IF NOT EXISTS platform_edges_indexed (station_name text, relation_id bigint, way_id bigint, nodes bigint[], tags jsonb, edge_ref text);
`

// WriteSeedSQL writes schema and insert statements that stand in for the
// osm2pgsql import and the derived views in a development database.
func WriteSeedSQL(w io.Writer, dataset Dataset) error {
	if _, err := io.WriteString(w, seedSchemaSQL); err != nil {
		return err
	}

	for _, network := range dataset.Networks {
		name := network.Station.Name
		for _, node := range network.Nodes {
			if _, err := fmt.Fprintf(w,
				"INSERT INTO planet_osm_nodes VALUES (%d, %.6f, %.6f);\n",
				node.ID, node.Lat, node.Lon); err != nil {
				return err
			}
		}
		for _, way := range network.Ways {
			tags, err := json.Marshal(way.Tags)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w,
				"INSERT INTO planet_osm_ways VALUES (%d, %s, %s);\n",
				way.ID, sqlArray(way.Nodes), sqlString(string(tags))); err != nil {
				return err
			}
			for _, table := range []string{"station_ways_with_nodes", "station_ways_with_nodes_plus_pedestrian"} {
				if _, err := fmt.Fprintf(w,
					"INSERT INTO %s VALUES (%d, %s, %d, %s);\n",
					table, network.RelationID, sqlString(name), way.ID, sqlArray(way.Nodes)); err != nil {
					return err
				}
			}
		}
		for _, edge := range network.Edges {
			tags, err := json.Marshal(map[string]string{"railway": "platform_edge", "ref": edge.EdgeRef})
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w,
				"INSERT INTO platform_edges_indexed VALUES (%s, %d, %d, %s, %s, %s);\n",
				sqlString(name), edge.RelationID, edge.WayID,
				sqlArray(edge.Nodes), sqlString(string(tags)), sqlString(edge.EdgeRef)); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w,
				"INSERT INTO station_platform_ways VALUES (%s, %d, %d);\n",
				sqlString(name), edge.RelationID, edge.WayID); err != nil {
				return err
			}
		}
		for _, segment := range network.Segments {
			if _, err := fmt.Fprintf(w,
				"INSERT INTO station_way_segments VALUES (%d, %s, %d, %d, %d);\n",
				network.RelationID, sqlString(name),
				segment.NodeFrom, segment.NodeTo, segment.WayID); err != nil {
				return err
			}
		}
	}
	return nil
}

func sqlArray[T ~int64](ids []T) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", int64(id))
	}
	return "ARRAY[" + strings.Join(parts, ",") + "]::bigint[]"
}

func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func boolFlag(b bool) string {
	if b {
		return "t"
	}
	return "f"
}
