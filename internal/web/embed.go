// internal/web/embed.go
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Templates 解析内嵌的页面模板
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"seq": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i
			}
			return out
		},
		"preview": func(text string, limit int) string {
			runes := []rune(strings.TrimSpace(text))
			if len(runes) <= limit {
				return string(runes)
			}
			return string(runes[:limit]) + "…"
		},
		"deref": func(p *int) int {
			if p == nil {
				return -1
			}
			return *p
		},
	}).ParseFS(templateFS, "templates/*.html")
}

// Static 返回静态资源文件系统，挂载在 /static
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
