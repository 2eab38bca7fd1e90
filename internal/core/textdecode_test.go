package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "plain utf-8",
			input: []byte("ID,Name\r\n1,Wolf\r\n"),
			want:  "ID,Name\r\n1,Wolf\r\n",
		},
		{
			name:  "utf-8 bom removed",
			input: []byte("\xEF\xBB\xBFID,Name\r\n"),
			want:  "ID,Name\r\n",
		},
		{
			name:  "utf-16 little endian",
			input: []byte{0xFF, 0xFE, 'I', 0, 'D', 0, '\r', 0, '\n', 0},
			want:  "ID\r\n",
		},
		{
			name:  "utf-16 big endian",
			input: []byte{0xFE, 0xFF, 0, 'I', 0, 'D'},
			want:  "ID",
		},
		{
			name:  "invalid utf-8 replaced",
			input: []byte("Caf\xE9"),
			want:  "Caf\uFFFD",
		},
		{
			name:  "multi-byte kept",
			input: []byte("Épée,火"),
			want:  "Épée,火",
		},
		{
			name:  "empty",
			input: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeText(tt.input)
			if err != nil {
				t.Fatalf("DecodeText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadText(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		got, err := ReadText(strings.NewReader("\xEF\xBB\xBFID\r\n1\r\n"), 64)
		if err != nil {
			t.Fatalf("ReadText() error = %v", err)
		}
		if got != "ID\r\n1\r\n" {
			t.Errorf("ReadText() = %q", got)
		}
	})

	t.Run("exactly at limit", func(t *testing.T) {
		if _, err := ReadText(bytes.NewReader(make([]byte, 16)), 16); err != nil {
			t.Errorf("ReadText() error = %v, want nil", err)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := ReadText(bytes.NewReader(make([]byte, 17)), 16)
		if !errors.Is(err, ErrFileTooLarge) {
			t.Errorf("ReadText() error = %v, want ErrFileTooLarge", err)
		}
	})
}
