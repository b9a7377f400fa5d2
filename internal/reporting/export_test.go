package reporting

import (
	"bytes"
	"context"
	"testing"
)

// Both exporters must produce a non-empty document even when the period has
// no data at all.
func TestWriteExcel_EmptyPeriod(t *testing.T) {
	svc := NewService(&mockRepo{})
	rep, err := svc.REM(context.Background(), 2025, 1)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteExcel(&buf, rep); err != nil {
		t.Fatalf("WriteExcel: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty workbook")
	}
	// xlsx is a zip container.
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Errorf("output does not look like an xlsx file: % x", buf.Bytes()[:4])
	}
}

func TestWritePDF_EmptyPeriod(t *testing.T) {
	svc := NewService(&mockRepo{})
	rep, err := svc.REM(context.Background(), 2025, 1)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, rep); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF")) {
		t.Error("output does not look like a PDF document")
	}
}

func TestWritePDF_WithBreakdowns(t *testing.T) {
	svc := NewService(sampleRepo())
	rep, err := svc.REM(context.Background(), 2025, 6)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WritePDF(&buf, rep); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty document")
	}
}
