package csvimport

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/KitaosakaSystem/webSyuhai/models"
	"github.com/KitaosakaSystem/webSyuhai/services"
)

type fakeRegistrar struct {
	registered []string
	existing   map[string]bool
}

func (f *fakeRegistrar) Register(userID, password string) (*models.User, error) {
	if f.existing[userID] {
		return nil, services.ErrUserExists
	}
	f.registered = append(f.registered, userID)
	return &models.User{UserID: userID}, nil
}

func TestImportUsersMixedBatch(t *testing.T) {
	// a full batch where exactly one row lacks a required field
	var b strings.Builder
	b.WriteString("userID,password\n")
	for i := 0; i < MaxRows-1; i++ {
		fmt.Fprintf(&b, "%04d,pw\n", i)
	}
	b.WriteString("9999,\n")

	reg := &fakeRegistrar{}
	im := NewImporter(nil, reg)

	result, err := im.ImportUsers(context.Background(), []byte(b.String()))
	if err != nil {
		t.Fatalf("ImportUsers: %v", err)
	}
	if result.Total != MaxRows {
		t.Fatalf("total = %d, want %d", result.Total, MaxRows)
	}
	if result.Created != MaxRows-1 || result.Failed != 1 {
		t.Fatalf("created/failed = %d/%d, want %d/1", result.Created, result.Failed, MaxRows-1)
	}
	if len(reg.registered) != MaxRows-1 {
		t.Fatalf("registrar saw %d ids, want %d", len(reg.registered), MaxRows-1)
	}

	var failure *RowOutcome
	for i := range result.Logs {
		if result.Logs[i].Status == StatusFailed {
			failure = &result.Logs[i]
		}
	}
	if failure == nil {
		t.Fatal("no failed row logged")
	}
	if failure.Key != "9999" {
		t.Fatalf("failed row key = %q, want 9999", failure.Key)
	}
	if !strings.Contains(failure.Message, "password") {
		t.Fatalf("failure message %q does not name the missing field", failure.Message)
	}
}

func TestImportUsersDuplicateIDContinues(t *testing.T) {
	raw := []byte("userID,password\n1234,pw\n5678,pw\n")
	reg := &fakeRegistrar{existing: map[string]bool{"1234": true}}
	im := NewImporter(nil, reg)

	result, err := im.ImportUsers(context.Background(), raw)
	if err != nil {
		t.Fatalf("ImportUsers: %v", err)
	}
	if result.Created != 1 || result.Failed != 1 {
		t.Fatalf("created/failed = %d/%d, want 1/1", result.Created, result.Failed)
	}
	if len(reg.registered) != 1 || reg.registered[0] != "5678" {
		t.Fatalf("registrar saw %v, want only 5678", reg.registered)
	}
}
