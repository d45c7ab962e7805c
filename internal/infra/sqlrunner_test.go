package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestExtractMarker(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		marker  string
		body    string
		wantErr bool
	}{
		{
			name:   "valid marker",
			query:  "--sql 8a8e0d52-7f5d-4f21-8b7d-f7d4b821eed7\nselect 1;",
			marker: "8a8e0d52-7f5d-4f21-8b7d-f7d4b821eed7",
			body:   "select 1;",
		},
		{
			name:   "leading whitespace tolerated",
			query:  "\n  --sql 8a8e0d52-7f5d-4f21-8b7d-f7d4b821eed7\nselect 1;\n",
			marker: "8a8e0d52-7f5d-4f21-8b7d-f7d4b821eed7",
			body:   "select 1;",
		},
		{
			name:    "missing marker",
			query:   "select 1;",
			wantErr: true,
		},
		{
			name:    "uppercase uuid rejected",
			query:   "--sql 8A8E0D52-7F5D-4F21-8B7D-F7D4B821EED7\nselect 1;",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			marker, body, err := ExtractMarker(tc.query)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractMarker error: %v", err)
			}
			if marker != tc.marker {
				t.Fatalf("marker = %q, want %q", marker, tc.marker)
			}
			if body != tc.body {
				t.Fatalf("body = %q, want %q", body, tc.body)
			}
		})
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)) {
		t.Fatal("wrapped ErrNoRows not detected")
	}
	if IsNoRows(errors.New("boom")) {
		t.Fatal("unrelated error reported as no rows")
	}
}
