package dbtypes

import "testing"

func TestJSONDocumentScan(t *testing.T) {
	var doc JSONDocument
	if err := doc.Scan(`{"taxPercentage":"6"}`); err != nil {
		t.Fatalf("scan string: %v", err)
	}
	var out map[string]string
	if err := doc.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out["taxPercentage"] != "6" {
		t.Fatalf("unexpected decoded value %v", out)
	}

	if err := doc.Scan([]byte(`[1,2]`)); err != nil {
		t.Fatalf("scan bytes: %v", err)
	}
	if string(doc) != "[1,2]" {
		t.Fatalf("unexpected document %s", doc)
	}

	if err := doc.Scan(42); err == nil {
		t.Fatal("expected unsupported scan type to fail")
	}
	if err := doc.Scan("{broken"); err == nil {
		t.Fatal("expected invalid json to fail")
	}
}

func TestJSONDocumentValue(t *testing.T) {
	doc, err := NewJSONDocument(map[string]int{"invoiceCount": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, err := doc.Value()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != `{"invoiceCount":3}` {
		t.Fatalf("unexpected value %v", v)
	}

	var empty JSONDocument
	if v, err := empty.Value(); err != nil || v != nil {
		t.Fatalf("expected nil value for empty document, got %v (%v)", v, err)
	}
	if err := empty.Decode(&struct{}{}); err == nil {
		t.Fatal("expected decode of empty document to fail")
	}
}
