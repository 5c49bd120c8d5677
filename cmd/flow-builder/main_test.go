package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFlow(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunCheck(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    int
	}{
		{
			name: "valid",
			file: "flow.json",
			content: `{"nodes":[
				{"id":"a","type":"textNode","position":{"x":0,"y":0},"data":{"label":"hi"}},
				{"id":"b","type":"textNode","position":{"x":0,"y":0},"data":{"label":"bye"}}
			],"edges":[{"id":"e1","source":"a","sourceHandle":"","target":"b","targetHandle":""}]}`,
			want: 0,
		},
		{
			name: "two entry nodes",
			file: "flow.yaml",
			content: `
nodes:
  - {id: a, type: textNode, position: {x: 0, y: 0}}
  - {id: b, type: textNode, position: {x: 0, y: 0}}
edges: []
`,
			want: 1,
		},
		{
			name:    "duplicate ids",
			file:    "flow.json",
			content: `{"nodes":[{"id":"a","type":"textNode"},{"id":"a","type":"textNode"}],"edges":[]}`,
			want:    2,
		},
		{
			name: "one handle fanning out",
			file: "flow.json",
			content: `{"nodes":[
				{"id":"a","type":"textNode"},
				{"id":"b","type":"textNode"},
				{"id":"c","type":"textNode"}
			],"edges":[
				{"id":"e1","source":"a","sourceHandle":"","target":"b"},
				{"id":"e2","source":"a","sourceHandle":"","target":"c"}
			]}`,
			want: 2,
		},
		{
			name:    "unknown extension",
			file:    "flow.txt",
			content: `{}`,
			want:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runCheck(writeFlow(t, tt.file, tt.content)); got != tt.want {
				t.Errorf("runCheck() = %d, want %d", got, tt.want)
			}
		})
	}
}
