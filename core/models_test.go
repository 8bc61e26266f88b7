package core

import (
	"testing"
)

func TestChunkID(t *testing.T) {
	if got := ChunkID("report.pdf", 3); got != "report.pdf_chunk_3" {
		t.Errorf("ChunkID() = %q", got)
	}
	if ChunkID("a.pdf", 0) != ChunkID("a.pdf", 0) {
		t.Errorf("ChunkID() not stable")
	}
	if ChunkID("a.pdf", 1) == ChunkID("b.pdf", 1) {
		t.Errorf("ChunkID() collides across files")
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("42")
	if err != nil || id != 42 {
		t.Fatalf("ParseID(42) = %d, %v", id, err)
	}
	if ID(42).String() != "42" {
		t.Errorf("String() = %q", ID(42).String())
	}
	if _, err := ParseID("forty-two"); err == nil {
		t.Errorf("ParseID() accepted a non-numeric id")
	}
}

func TestCollection_TenantKey(t *testing.T) {
	c := &Collection{ID: 7, Name: "papers"}
	if c.TenantKey() != "7" {
		t.Errorf("TenantKey() = %q", c.TenantKey())
	}
}

func TestDocument_DisplayTitle(t *testing.T) {
	d := &Document{Filename: "a.pdf"}
	if d.DisplayTitle() != "a.pdf" {
		t.Errorf("DisplayTitle() = %q", d.DisplayTitle())
	}
	d.Title = "Annual Report"
	if d.DisplayTitle() != "Annual Report" {
		t.Errorf("DisplayTitle() = %q", d.DisplayTitle())
	}
}
