package extract

import "testing"

func TestResolve(t *testing.T) {
	t.Parallel()

	const page = "https://www.example.com/news/2024/a.html?id=1"
	tests := []struct {
		name   string
		ref    string
		origin string
		want   string
	}{
		{name: "protocol relative", ref: "//img.example.com/a.png", want: "https://img.example.com/a.png"},
		{name: "root relative uses page origin", ref: "/static/b.png", want: "https://www.example.com/static/b.png"},
		{name: "root relative uses configured origin", ref: "/static/b.png", origin: "http://cdn.example.com/", want: "http://cdn.example.com/static/b.png"},
		{name: "relative resolves against page", ref: "../img/c.png", want: "https://www.example.com/news/img/c.png"},
		{name: "absolute kept", ref: "http://other.example/x.png", want: "http://other.example/x.png"},
		{name: "data uri kept", ref: "data:image/png;base64,AAAA", want: "data:image/png;base64,AAAA"},
		{name: "javascript dropped", ref: "javascript:void(0)", want: ""},
		{name: "empty dropped", ref: "  ", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Resolve(tt.ref, page, tt.origin); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestBaseDir(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"https://www.example.cn/a/b/c.html?x=1#f": "https://www.example.cn/a/b/",
		"https://www.example.cn/a/b/":             "https://www.example.cn/a/b/",
		"https://www.example.cn":                  "https://www.example.cn/",
		"not a url":                               "not a url",
	}
	for in, want := range tests {
		if got := BaseDir(in); got != want {
			t.Errorf("BaseDir(%q) = %q, want %q", in, got, want)
		}
	}
}
