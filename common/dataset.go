/*
 * Copyright Tabular Pipeline Org. 2026
 *
 * contact@tabular-pipeline.io
 *
 * This software is part of the Tabular Pipeline project, an open-source
 * machine learning pipeline.
 *
 * This software is governed by the CeCILL license, compatible with the
 * GNU GPL, under French law and abiding by the rules of distribution of
 * free software. You can  use, modify and/ or redistribute the software
 * under the terms of the CeCILL license as circulated by CEA, CNRS and
 * INRIA at the following URL "http://www.cecill.info".
 *
 * As a counterpart to the access to the source code and  rights to copy,
 * modify and redistribute granted by the license, users are provided only
 * with a limited warranty  and the software's author,  the holder of the
 * economic rights,  and the successive licensors  have only  limited
 * liability.
 *
 * In this respect, the user's attention is drawn to the risks associated
 * with loading,  using,  modifying and/or developing or reproducing the
 * software by the user in light of its specific status of free software,
 * that may mean  that it is complicated to manipulate,  and  that  also
 * therefore means  that it is reserved for developers  and  experienced
 * professionals having in-depth computer knowledge. Users are therefore
 * encouraged to load and test the software's suitability as regards their
 * requirements in conditions enabling the security of their systems and/or
 * data to be ensured and,  more generally, to use and operate it in the
 * same conditions as regards security.
 *
 * The fact that you are presently reading this means that you have had
 * knowledge of the CeCILL license and that you accept its terms.
 */

package common

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"net/http"
)

// DefaultDatasetURL points at the public census income dataset the tutorial pipeline trains on
const DefaultDatasetURL = "https://archive.ics.uci.edu/ml/machine-learning-databases/adult/adult.data"

// DefaultTargetColumn is the label column of the census dataset
const DefaultTargetColumn = "class"

// DefaultMajorityLabel is the majority class of the census dataset, what a constant classifier
// would predict. The mocked platform clients use it as their one and only answer.
const DefaultMajorityLabel = "<=50K"

// DefaultCensusColumns holds the column names of the census dataset, which ships without a header
// row. The last column is the income class the model learns to predict.
var DefaultCensusColumns = []string{
	"age", "workclass", "fnlwgt", "education", "education-num", "marital-status",
	"occupation", "relationship", "race", "sex", "capital-gain", "capital-loss",
	"hours-per-week", "native-country", "class",
}

// Table is an in-memory CSV dataset: an ordered header and string cells. It covers the little
// reshaping the pipeline needs (renaming columns, dropping the target, splitting) without
// pretending to be a dataframe library.
type Table struct {
	Header []string
	Rows   [][]string
}

// LoadCSV parses CSV content into a Table. When hasHeader is false the caller is expected to
// SetHeader afterwards. Ragged rows are an error.
func LoadCSV(r io.Reader, hasHeader bool) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("[dataset] Error parsing CSV content: %s", err)
	}

	table := &Table{}
	if hasHeader {
		if len(records) == 0 {
			return nil, fmt.Errorf("[dataset] Error parsing CSV content: header row expected but content is empty")
		}
		table.Header = records[0]
		table.Rows = records[1:]
	} else {
		table.Rows = records
	}
	return table, nil
}

// FetchCSV downloads a header-less CSV file over HTTP and names its columns
func FetchCSV(url string, columns []string) (*Table, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("[dataset] Error performing GET request against %s: %s", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("[dataset] Bad status code (%s) performing GET request against %s", resp.Status, url)
	}

	table, err := LoadCSV(resp.Body, false)
	if err != nil {
		return nil, err
	}

	if err = table.SetHeader(columns); err != nil {
		return nil, err
	}
	return table, nil
}

// NumRows returns the number of data rows (header excluded)
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// SetHeader names the table columns. The column count must match the rows.
func (t *Table) SetHeader(columns []string) error {
	if len(t.Rows) > 0 && len(columns) != len(t.Rows[0]) {
		return fmt.Errorf("[dataset] Error naming columns: %d names provided for %d columns", len(columns), len(t.Rows[0]))
	}
	t.Header = append([]string{}, columns...)
	return nil
}

// ColumnIndex returns the position of a named column
func (t *Table) ColumnIndex(name string) (int, error) {
	for n, columnName := range t.Header {
		if columnName == name {
			return n, nil
		}
	}
	return 0, fmt.Errorf("[dataset] Unknown column \"%s\"", name)
}

// RenameColumn renames a column, keeping its position
func (t *Table) RenameColumn(oldName, newName string) error {
	n, err := t.ColumnIndex(oldName)
	if err != nil {
		return err
	}
	t.Header[n] = newName
	return nil
}

// Column extracts the cells of a named column
func (t *Table) Column(name string) ([]string, error) {
	n, err := t.ColumnIndex(name)
	if err != nil {
		return nil, err
	}

	cells := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells = append(cells, row[n])
	}
	return cells, nil
}

// DropColumn removes a named column from the header and every row. The deployed inference
// container must not see the target column, hence this.
func (t *Table) DropColumn(name string) error {
	n, err := t.ColumnIndex(name)
	if err != nil {
		return err
	}

	t.Header = append(t.Header[:n], t.Header[n+1:]...)
	for i, row := range t.Rows {
		t.Rows[i] = append(row[:n], row[n+1:]...)
	}
	return nil
}

// Split shuffles the rows with the given seed and splits them in a train and a test table. The
// header is shared by both sides.
func (t *Table) Split(testFraction float64, seed int64) (train, test *Table, err error) {
	if testFraction < 0 || testFraction > 1 {
		return nil, nil, fmt.Errorf("[dataset] Invalid test fraction %f: must be in [0, 1]", testFraction)
	}

	shuffled := make([][]string, len(t.Rows))
	copy(shuffled, t.Rows)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	testSize := int(float64(len(shuffled)) * testFraction)
	test = &Table{Header: t.Header, Rows: shuffled[:testSize]}
	train = &Table{Header: t.Header, Rows: shuffled[testSize:]}
	return train, test, nil
}

// WriteCSV serializes the table. Batch transform inputs want the header stripped, training
// inputs want it kept, hence the flag.
func (t *Table) WriteCSV(w io.Writer, withHeader bool) error {
	writer := csv.NewWriter(w)
	if withHeader && len(t.Header) > 0 {
		if err := writer.Write(t.Header); err != nil {
			return fmt.Errorf("[dataset] Error writing CSV header: %s", err)
		}
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("[dataset] Error writing CSV rows: %s", err)
	}
	writer.Flush()
	return writer.Error()
}

// Bytes serializes the table to a byte buffer, ready for a blob store upload
func (t *Table) Bytes(withHeader bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf, withHeader); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Clone deep-copies the table so that destructive reshaping (DropColumn) can be applied to a
// throwaway copy
func (t *Table) Clone() *Table {
	clone := &Table{
		Header: append([]string{}, t.Header...),
		Rows:   make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		clone.Rows[i] = append([]string{}, row...)
	}
	return clone
}
