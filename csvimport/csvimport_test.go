package csvimport

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestParseBatch(t *testing.T) {
	raw := []byte("userID,password\n1234,secret\n1234567,hunter2\n")
	rows, err := ParseBatch(raw, UserColumns)
	if err != nil {
		t.Fatalf("ParseBatch: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0]["userID"] != "1234" || rows[0]["password"] != "secret" {
		t.Fatalf("row 0 = %v", rows[0])
	}
}

func TestParseBatchRejectsOversizedBatch(t *testing.T) {
	var b strings.Builder
	b.WriteString("userID,password\n")
	for i := 0; i < MaxRows+1; i++ {
		fmt.Fprintf(&b, "%04d,pw\n", i)
	}

	_, err := ParseBatch([]byte(b.String()), UserColumns)
	if !errors.Is(err, ErrTooManyRows) {
		t.Fatalf("err = %v, want ErrTooManyRows", err)
	}
}

func TestParseBatchAcceptsExactCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("userID,password\n")
	for i := 0; i < MaxRows; i++ {
		fmt.Fprintf(&b, "%04d,pw\n", i)
	}

	rows, err := ParseBatch([]byte(b.String()), UserColumns)
	if err != nil {
		t.Fatalf("ParseBatch: %v", err)
	}
	if len(rows) != MaxRows {
		t.Fatalf("got %d rows, want %d", len(rows), MaxRows)
	}
}

func TestParseBatchNamesMissingColumns(t *testing.T) {
	raw := []byte("customerId,name\n0001,田中医院\n")
	_, err := ParseBatch(raw, CustomerColumns)

	var missErr *MissingColumnsError
	if !errors.As(err, &missErr) {
		t.Fatalf("err = %v, want MissingColumnsError", err)
	}
	want := []string{"password", "kyoten_id"}
	if len(missErr.Columns) != len(want) {
		t.Fatalf("missing = %v, want %v", missErr.Columns, want)
	}
	for i, col := range want {
		if missErr.Columns[i] != col {
			t.Fatalf("missing = %v, want %v", missErr.Columns, want)
		}
	}
}

func TestParseBatchRejectsEmptyFiles(t *testing.T) {
	for _, raw := range []string{"", "userID,password\n", "userID,password\n,\n"} {
		if _, err := ParseBatch([]byte(raw), UserColumns); !errors.Is(err, ErrNoData) {
			t.Errorf("ParseBatch(%q) err = %v, want ErrNoData", raw, err)
		}
	}
}

func TestParseBatchStripsBOM(t *testing.T) {
	raw := []byte("\ufeffuserID,password\n1234,pw\n")
	rows, err := ParseBatch(raw, UserColumns)
	if err != nil {
		t.Fatalf("ParseBatch: %v", err)
	}
	if rows[0]["userID"] != "1234" {
		t.Fatalf("row 0 = %v", rows[0])
	}
}

func TestDecodeTextShiftJIS(t *testing.T) {
	// 名前 in Shift-JIS
	raw := []byte{0x96, 0xBC, 0x91, 0x4F}
	if got := DecodeText(raw); got != "名前" {
		t.Fatalf("DecodeText = %q, want 名前", got)
	}
}

func TestDecodeTextPassesASCIIThrough(t *testing.T) {
	raw := []byte("userID,password\n1234,pw\n")
	if got := DecodeText(raw); got != string(raw) {
		t.Fatalf("DecodeText = %q", got)
	}
}

func TestMissingFields(t *testing.T) {
	row := map[string]string{"customerId": "0001", "name": "", "password": "pw"}
	got := MissingFields(row, CustomerColumns)
	want := []string{"name", "kyoten_id"}
	if len(got) != len(want) {
		t.Fatalf("MissingFields = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MissingFields = %v, want %v", got, want)
		}
	}
}

func TestStaffRoutes(t *testing.T) {
	row := map[string]string{
		"userId":   "1000001",
		"routes_0": "R1",
		"routes_1": "",
		"routes_2": "R3",
		"routes_9": "R10",
	}
	got := StaffRoutes(row)
	want := []string{"R1", "R3", "R10"}
	if len(got) != len(want) {
		t.Fatalf("StaffRoutes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("StaffRoutes = %v, want %v", got, want)
		}
	}
}

func TestResultLogCounts(t *testing.T) {
	r := &Result{}
	r.Log("0001", StatusCreated, "registered")
	r.Log("0002", StatusOverwritten, "reference data overwritten")
	r.Log("", StatusFailed, "missing required fields: name")

	if r.Created != 1 || r.Overwritten != 1 || r.Failed != 1 {
		t.Fatalf("counts = %d/%d/%d", r.Created, r.Overwritten, r.Failed)
	}
	if r.Logs[2].Key != "(empty)" {
		t.Fatalf("empty key rendered as %q", r.Logs[2].Key)
	}
}
