// Command pagechain-stub serves a small chain of paginated pages for trying
// pagecollect by hand:
//
//	PAGES=5 ADDR=:8000 pagechain-stub
//	pagecollect http://localhost:8000/page/1
package main

import (
	"html/template"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
    <head><title>Page {{.Page}}</title></head>
    <body>
        <nav>[ <a rel="prev"{{if .Prev}} href="/page/{{.Prev}}"{{end}}>prev</a>,
               <a rel="next"{{if .Next}} href="/page/{{.Next}}"{{end}}>next</a> ]
        </nav>

        <div class="content">Page {{.Page}}</div>
    </body>
</html>
`))

type pageData struct {
	Page int
	// Zero means no link.
	Prev, Next int
}

// newHandler serves /page/1 .. /page/pages. Any other path is page 1. The
// last page keeps its next anchor but without an href.
func newHandler(pages int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if s, ok := strings.CutPrefix(r.URL.Path, "/page/"); ok {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				page = n
			}
		}
		data := pageData{Page: page}
		if page > 1 {
			data.Prev = page - 1
		}
		if page < pages {
			data.Next = page + 1
		}
		log.Debug().Str("path", r.URL.Path).Int("page", page).Msg("serve")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := pageTmpl.Execute(w, data); err != nil {
			log.Error().Err(err).Msg("render page")
		}
	})
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	pages := 3
	if s := strings.TrimSpace(os.Getenv("PAGES")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			log.Fatal().Str("PAGES", s).Msg("PAGES must be a positive integer")
		}
		pages = n
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8000"
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newHandler(pages),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", addr).Int("pages", pages).Msg("pagechain-stub listening; try /page/1")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
