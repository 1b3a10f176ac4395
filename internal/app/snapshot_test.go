package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestExportImportSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newFakeRepo()
	persister := NewPersister(src, PersisterConfig{Interval: time.Hour})
	defer func() { _ = persister.Close(ctx) }()
	svc := NewService(src, sequentialIDs(), fixedClock(), ServiceConfig{DefaultColumns: []string{"A", "B"}, Persister: persister})
	if _, err := svc.CreateBoard(ctx, "alpha", "Alpha"); err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	if _, err := svc.CreateBoard(ctx, "beta", ""); err != nil {
		t.Fatalf("CreateBoard() error = %v", err)
	}
	for _, title := range []string{"one", "two"} {
		if _, err := svc.AddCard(ctx, "alpha", "col1", title, "**md**"); err != nil {
			t.Fatalf("AddCard() error = %v", err)
		}
	}
	snap, err := svc.ExportSnapshot(ctx, "alpha")
	if err != nil {
		t.Fatalf("ExportSnapshot() error = %v", err)
	}
	if snap.Version != SnapshotVersion || len(snap.Boards) != 1 {
		t.Fatalf("unexpected snapshot %#v", snap)
	}
	if got := snap.Boards[0]; len(got.Cards) != 2 || got.NextCardID != 2 || got.Name != "Alpha" {
		t.Fatalf("unexpected board snapshot %#v", got)
	}

	for _, format := range []SnapshotFormat{SnapshotFormatJSON, SnapshotFormatYAML} {
		var buf bytes.Buffer
		if err := EncodeSnapshot(&buf, snap, format); err != nil {
			t.Fatalf("EncodeSnapshot(%s) error = %v", format, err)
		}
		decoded, err := DecodeSnapshot(&buf, format)
		if err != nil {
			t.Fatalf("DecodeSnapshot(%s) error = %v", format, err)
		}

		dst := newFakeRepo()
		other := NewService(dst, sequentialIDs(), fixedClock(), ServiceConfig{})
		if err := other.ImportSnapshot(ctx, decoded); err != nil {
			t.Fatalf("ImportSnapshot(%s) error = %v", format, err)
		}
		state, err := other.BoardState(ctx, "alpha")
		if err != nil {
			t.Fatalf("BoardState() error = %v", err)
		}
		if len(state.Cards) != 2 || state.Cards[1].Title != "two" || state.Cards[1].Description != "**md**" {
			t.Fatalf("unexpected imported cards %#v", state.Cards)
		}
		card, err := other.AddCard(ctx, "alpha", "col0", "three", "")
		if err != nil {
			t.Fatalf("AddCard() after import error = %v", err)
		}
		if card.ID != "ca2" {
			t.Fatalf("expected ca2 after import, got %q", card.ID)
		}
	}
}

func TestImportSnapshotValidation(t *testing.T) {
	svc := NewService(newFakeRepo(), sequentialIDs(), fixedClock(), ServiceConfig{})
	cases := []struct {
		name string
		snap Snapshot
	}{
		{
			name: "version",
			snap: Snapshot{Version: "other"},
		},
		{
			name: "empty key",
			snap: Snapshot{Version: SnapshotVersion, Boards: []SnapshotBoard{{Key: " "}}},
		},
		{
			name: "duplicate key",
			snap: Snapshot{Version: SnapshotVersion, Boards: []SnapshotBoard{{Key: "a"}, {Key: "a"}}},
		},
		{
			name: "unknown column",
			snap: Snapshot{Version: SnapshotVersion, Boards: []SnapshotBoard{{
				Key:     "a",
				Columns: []SnapshotColumn{{ID: "col0", Title: "A"}},
				Cards:   []SnapshotCard{{ID: "ca0", ColumnID: "col9", Title: "x"}},
			}}},
		},
		{
			name: "duplicate card",
			snap: Snapshot{Version: SnapshotVersion, Boards: []SnapshotBoard{{
				Key:     "a",
				Columns: []SnapshotColumn{{ID: "col0", Title: "A"}},
				Cards:   []SnapshotCard{{ID: "ca0", ColumnID: "col0", Title: "x"}, {ID: "ca0", ColumnID: "col0", Title: "y"}},
			}}},
		},
	}
	for _, tc := range cases {
		if err := svc.ImportSnapshot(context.Background(), tc.snap); !errors.Is(err, ErrInvalidSnapshot) {
			t.Fatalf("%s: expected ErrInvalidSnapshot, got %v", tc.name, err)
		}
	}
}

func TestParseSnapshotFormat(t *testing.T) {
	if f, err := ParseSnapshotFormat(" YML "); err != nil || f != SnapshotFormatYAML {
		t.Fatalf("ParseSnapshotFormat(yml) = %q, %v", f, err)
	}
	if _, err := ParseSnapshotFormat("xml"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if FormatFromPath("out.YAML") != SnapshotFormatYAML || FormatFromPath("out.json") != SnapshotFormatJSON {
		t.Fatal("unexpected format from path")
	}
	if _, err := DecodeSnapshot(strings.NewReader("{"), SnapshotFormatJSON); err == nil {
		t.Fatal("expected decode error")
	}
}
