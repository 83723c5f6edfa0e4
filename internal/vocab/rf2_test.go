package vocab

import "testing"

const rf2Fixture = "id\teffectiveTime\tactive\tmoduleId\tdefinitionStatusId\n" +
	"100\t20200101\t1\tm\t900000000000074008\n" +
	"100\t20230101\t0\tm\t900000000000073002\n" +
	"200\t20210101\t1\tm\t900000000000074008\n" +
	"100\t20220101\t1\tm\t900000000000074008\n"

func TestReadRF2KeepsLatestEffectiveTime(t *testing.T) {
	table, err := ReadRF2(writeFixture(t, "concept.txt", rf2Fixture))
	if err != nil {
		t.Fatalf("read rf2: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 deduplicated rows, got %d", len(table.Rows))
	}

	// First-seen id order is preserved, the surviving row is the newest.
	if got := table.Field(table.Rows[0], "id"); got != "100" {
		t.Errorf("row order: first id %q", got)
	}
	if got := table.Field(table.Rows[0], "effectiveTime"); got != "20230101" {
		t.Errorf("dedup kept effectiveTime %q", got)
	}
	if got := table.Field(table.Rows[0], "active"); got != "0" {
		t.Errorf("dedup kept active %q", got)
	}
	if got := table.Field(table.Rows[1], "id"); got != "200" {
		t.Errorf("row order: second id %q", got)
	}
}

func TestReadTableHeaderless(t *testing.T) {
	fixture := "a1|b1|c1\na2|b2\n"
	table, err := ReadTable(writeFixture(t, "plain.txt", fixture), TableOptions{
		Comma:   '|',
		Columns: []string{"first", "second", "third"},
	})
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows: %d", len(table.Rows))
	}
	if got := table.Field(table.Rows[0], "third"); got != "c1" {
		t.Errorf("third column: %q", got)
	}
	// Ragged rows read missing columns as empty.
	if got := table.Field(table.Rows[1], "third"); got != "" {
		t.Errorf("missing column should be empty, got %q", got)
	}
	if got := table.Field(table.Rows[0], "absent"); got != "" {
		t.Errorf("unknown column should be empty, got %q", got)
	}
}
