package mcp

import "net/http"

const landingHTML = `<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Búsqueda BGE</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #f5f7f4; color: #1f2a1c; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 560px; width: 90%; background: #ffffff; border-top: 6px solid #2f6b2f; border-radius: 10px; padding: 2.25rem; box-shadow: 0 12px 30px rgba(0,0,0,0.08); }
  h1 { font-size: 1.6rem; margin-bottom: 0.4rem; }
  .subtitle { color: #5b6b57; margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.08em; color: #7a8a75; margin: 1.25rem 0 0.5rem; }
  ul { list-style: none; }
  li { margin-bottom: 0.35rem; }
  a { color: #2f6b2f; }
  code { font-family: "SF Mono", Menlo, monospace; font-size: 0.9rem; background: #eef2ec; padding: 0.1rem 0.35rem; border-radius: 4px; }
</style>
</head>
<body>
<div class="card">
  <h1>Búsqueda del portal BGE</h1>
  <p class="subtitle">Índice de páginas, trámites y avisos del Bachillerato General Estatal, disponible por Model Context Protocol.</p>

  <div class="section-title">Herramientas</div>
  <ul>
    <li><code>search_docs</code> búsqueda con filtros por categoría y tipo</li>
    <li><code>suggest</code> autocompletado</li>
    <li><code>get_index_status</code> estado del índice</li>
    <li><code>reindex</code> reconstrucción del índice</li>
  </ul>

  <div class="section-title">Endpoints</div>
  <ul>
    <li><a href="/mcp"><code>/mcp</code></a> MCP Streamable HTTP</li>
    <li><a href="/health"><code>/health</code></a> estado del servicio</li>
    <li><a href="/metrics"><code>/metrics</code></a> métricas Prometheus</li>
  </ul>
</div>
</body>
</html>`

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(landingHTML))
	}
}
