package common

import (
	"strings"
	"testing"
)

const censusSample = ` 39, State-gov, 77516, Bachelors, 13, Never-married, Adm-clerical, Not-in-family, White, Male, 2174, 0, 40, United-States, <=50K
 50, Self-emp-not-inc, 83311, Bachelors, 13, Married-civ-spouse, Exec-managerial, Husband, White, Male, 0, 0, 13, United-States, <=50K
 38, Private, 215646, HS-grad, 9, Divorced, Handlers-cleaners, Not-in-family, White, Male, 0, 0, 40, United-States, <=50K
 53, Private, 234721, 11th, 7, Married-civ-spouse, Handlers-cleaners, Husband, Black, Male, 0, 0, 40, United-States, <=50K
 28, Private, 338409, Bachelors, 13, Married-civ-spouse, Prof-specialty, Wife, Black, Female, 0, 0, 40, Cuba, >50K
`

func loadSample(t *testing.T) *Table {
	table, err := LoadCSV(strings.NewReader(censusSample), false)
	if err != nil {
		t.Fatalf("Error loading sample: %s", err)
	}
	if err = table.SetHeader(DefaultCensusColumns); err != nil {
		t.Fatalf("Error naming columns: %s", err)
	}
	return table
}

func TestLoadCSV(t *testing.T) {
	table := loadSample(t)

	if table.NumRows() != 5 {
		t.Errorf("Expected 5 rows, got %d", table.NumRows())
	}
	if len(table.Header) != 15 {
		t.Errorf("Expected 15 columns, got %d", len(table.Header))
	}

	// TrimLeadingSpace must have eaten the leading spaces the census file ships with
	if table.Rows[0][0] != "39" {
		t.Errorf("Expected first cell to be \"39\", got \"%s\"", table.Rows[0][0])
	}
}

func TestLoadCSVWithHeader(t *testing.T) {
	content := "a,b\n1,2\n3,4\n"
	table, err := LoadCSV(strings.NewReader(content), true)
	if err != nil {
		t.Fatalf("Error loading CSV: %s", err)
	}
	if len(table.Header) != 2 || table.Header[0] != "a" {
		t.Errorf("Unexpected header: %v", table.Header)
	}
	if table.NumRows() != 2 {
		t.Errorf("Expected 2 rows, got %d", table.NumRows())
	}

	if _, err = LoadCSV(strings.NewReader(""), true); err == nil {
		t.Errorf("Expected an error loading an empty file with a header")
	}
}

func TestLoadCSVRaggedRows(t *testing.T) {
	if _, err := LoadCSV(strings.NewReader("1,2,3\n4,5\n"), false); err == nil {
		t.Errorf("Expected an error on ragged rows")
	}
}

func TestSetHeaderMismatch(t *testing.T) {
	table, _ := LoadCSV(strings.NewReader("1,2\n"), false)
	if err := table.SetHeader([]string{"only-one"}); err == nil {
		t.Errorf("Expected an error naming 2 columns with 1 name")
	}
}

func TestColumn(t *testing.T) {
	table := loadSample(t)

	labels, err := table.Column("class")
	if err != nil {
		t.Fatalf("Error extracting label column: %s", err)
	}
	if len(labels) != 5 {
		t.Fatalf("Expected 5 labels, got %d", len(labels))
	}
	if labels[4] != ">50K" {
		t.Errorf("Expected last label to be \">50K\", got \"%s\"", labels[4])
	}

	if _, err = table.Column("shoe-size"); err == nil {
		t.Errorf("Expected an error on an unknown column")
	}
}

func TestRenameColumn(t *testing.T) {
	table := loadSample(t)

	if err := table.RenameColumn("class", "income"); err != nil {
		t.Fatalf("Error renaming column: %s", err)
	}
	if _, err := table.ColumnIndex("income"); err != nil {
		t.Errorf("Renamed column not found: %s", err)
	}
	if _, err := table.ColumnIndex("class"); err == nil {
		t.Errorf("Old column name still present after rename")
	}
}

func TestDropColumn(t *testing.T) {
	table := loadSample(t)

	if err := table.DropColumn("class"); err != nil {
		t.Fatalf("Error dropping column: %s", err)
	}
	if len(table.Header) != 14 {
		t.Errorf("Expected 14 columns after drop, got %d", len(table.Header))
	}
	for n, row := range table.Rows {
		if len(row) != 14 {
			t.Errorf("Row %d still has %d cells", n, len(row))
		}
	}
}

func TestSplit(t *testing.T) {
	table := loadSample(t)

	train, test, err := table.Split(0.4, 42)
	if err != nil {
		t.Fatalf("Error splitting table: %s", err)
	}
	if test.NumRows() != 2 {
		t.Errorf("Expected 2 test rows, got %d", test.NumRows())
	}
	if train.NumRows() != 3 {
		t.Errorf("Expected 3 train rows, got %d", train.NumRows())
	}

	// Same seed, same split
	train2, test2, _ := table.Split(0.4, 42)
	if train2.Rows[0][2] != train.Rows[0][2] || test2.Rows[0][2] != test.Rows[0][2] {
		t.Errorf("Expected the split to be deterministic for a given seed")
	}

	if _, _, err = table.Split(1.5, 42); err == nil {
		t.Errorf("Expected an error on a test fraction above 1")
	}
}

func TestBytesRoundTrip(t *testing.T) {
	table := loadSample(t)

	// With header: the first line is the column names
	content, err := table.Bytes(true)
	if err != nil {
		t.Fatalf("Error serializing table: %s", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 6 {
		t.Errorf("Expected 6 lines (header included), got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "age,workclass") {
		t.Errorf("Expected a header line, got \"%s\"", lines[0])
	}

	// Without header: data only
	content, err = table.Bytes(false)
	if err != nil {
		t.Fatalf("Error serializing table: %s", err)
	}
	lines = strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 5 {
		t.Errorf("Expected 5 lines (no header), got %d", len(lines))
	}
}

func TestClone(t *testing.T) {
	table := loadSample(t)
	clone := table.Clone()

	if err := clone.DropColumn("class"); err != nil {
		t.Fatalf("Error dropping column on the clone: %s", err)
	}

	// The original must be left untouched
	if len(table.Header) != 15 {
		t.Errorf("Dropping a column on the clone changed the original header")
	}
	if len(table.Rows[0]) != 15 {
		t.Errorf("Dropping a column on the clone changed the original rows")
	}
}
