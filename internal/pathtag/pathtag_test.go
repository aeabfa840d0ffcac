package pathtag

import (
	"reflect"
	"testing"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name string
		root string
		path string
		want []string
	}{
		{
			name: "nested directories",
			root: "/root",
			path: "/root/funny/lighthearted/video.mp4",
			want: []string{"funny", "lighthearted"},
		},
		{
			name: "file at root",
			root: "/root",
			path: "/root/video.mp4",
			want: nil,
		},
		{
			name: "root with trailing slash",
			root: "/root/",
			path: "/root/a/b.jpg",
			want: []string{"a"},
		},
		{
			name: "escapes root",
			root: "/root/media",
			path: "/root/other/x.jpg",
			want: nil,
		},
		{
			name: "dotdot-prefixed directory name stays inside",
			root: "/root",
			path: "/root/..hidden/x.jpg",
			want: []string{"..hidden"},
		},
		{
			name: "duplicate segment collapsed",
			root: "/root",
			path: "/root/a/b/a/x.jpg",
			want: []string{"a", "b"},
		},
		{
			name: "backslash separated segments",
			root: "/root",
			path: `/root/win\style/x.jpg`,
			want: []string{"win", "style"},
		},
		{
			name: "whitespace trimmed, blank dropped",
			root: "/root",
			path: "/root/ spaced /   /x.jpg",
			want: []string{"spaced"},
		},
		{
			name: "case preserved",
			root: "/root",
			path: "/root/Funny/funny/x.jpg",
			want: []string{"Funny", "funny"},
		},
		{
			name: "path equals root",
			root: "/root",
			path: "/root",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(tt.root, tt.path)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Derive(%q, %q) = %#v, want %#v", tt.root, tt.path, got, tt.want)
			}
		})
	}
}

func BenchmarkDerive(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Derive("/media", "/media/2024/holidays/beach/day one/IMG_0001.jpg")
	}
}
