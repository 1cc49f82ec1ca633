package dataset

import (
	"bytes"
	"database/sql"
	"encoding/gob"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/xerrors"

	"go-ml.dev/pkg/defectdetect/tensor"
)

const samplesTable = "samples"

/*
LoadSQLite reads a sample table from the `samples` table of a SQLite
database. Column names are taken from the schema; images are stored as
gob-encoded tensors.
*/
func LoadSQLite(path string, schema Schema) (*Table, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, xerrors.Errorf("open sample store %q: %w", path, err)
	}
	defer db.Close()

	q := fmt.Sprintf(`select "%s", "%s", "%s", "%s" from %s`,
		schema.SampleID, schema.Image, schema.Type, schema.Quality, samplesTable)
	rs, err := db.Query(q)
	if err != nil {
		return nil, xerrors.Errorf("query sample store %q: %w", path, err)
	}
	defer rs.Close()

	var rows []Row
	for rs.Next() {
		var r Row
		var blob []byte
		if err = rs.Scan(&r.ID, &blob, &r.Type, &r.Quality); err != nil {
			return nil, xerrors.Errorf("scan sample store %q: %w", path, err)
		}
		if r.Image, err = decodeImage(blob); err != nil {
			return nil, xerrors.Errorf("sample %q: %w", r.ID, err)
		}
		rows = append(rows, r)
	}
	if err = rs.Err(); err != nil {
		return nil, xerrors.Errorf("read sample store %q: %w", path, err)
	}
	return NewTable(rows)
}

/*
SaveSQLite writes the table into a SQLite database, replacing any existing
`samples` table. Used to persist amplified datasets.
*/
func (t *Table) SaveSQLite(path string, schema Schema) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return xerrors.Errorf("open sample store %q: %w", path, err)
	}
	defer db.Close()

	ddl := fmt.Sprintf(`
		drop table if exists %[1]s;
		create table %[1]s (
			"%[2]s" text primary key,
			"%[3]s" blob not null,
			"%[4]s" text not null,
			"%[5]s" real not null
		);`,
		samplesTable, schema.SampleID, schema.Image, schema.Type, schema.Quality)
	if _, err = db.Exec(ddl); err != nil {
		return xerrors.Errorf("create sample store %q: %w", path, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return xerrors.Errorf("sample store %q: %w", path, err)
	}
	ins := fmt.Sprintf(`insert into %s values (?, ?, ?, ?)`, samplesTable)
	for _, r := range t.rows {
		blob, err := encodeImage(r.Image)
		if err != nil {
			tx.Rollback()
			return xerrors.Errorf("sample %q: %w", r.ID, err)
		}
		if _, err = tx.Exec(ins, r.ID, blob, r.Type, r.Quality); err != nil {
			tx.Rollback()
			return xerrors.Errorf("insert sample %q: %w", r.ID, err)
		}
	}
	return tx.Commit()
}

func encodeImage(img *tensor.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(img); err != nil {
		return nil, xerrors.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeImage(blob []byte) (*tensor.Image, error) {
	img := &tensor.Image{}
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(img); err != nil {
		return nil, xerrors.Errorf("decode image: %w", err)
	}
	return img, nil
}
