package gateway

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

var (
	corsAllowMethods = []string{"GET", "HEAD", "PUT", "POST", "DELETE", "PATCH"}
	corsAllowHeaders = []string{"Content-Type", "X-Amz-Date", "Authorization", "X-Api-Key", "X-Amz-Security-Token"}
)

// withCORS 为本地 HTTP 适配器添加 CORS 响应头并处理预检请求
func (g *Gateway) withCORS(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: g.config.AllowedOrigins,
		AllowedMethods: corsAllowMethods,
		AllowedHeaders: corsAllowHeaders,
	}).Handler(next)
}

// corsHeaders returns the CORS headers the Lambda adapter attaches to every
// response for a request from origin. With no configured origins, or a "*"
// entry, every origin is allowed.
func (g *Gateway) corsHeaders(origin string) map[string]string {
	headers := map[string]string{
		"Access-Control-Allow-Methods": strings.Join(corsAllowMethods, ","),
		"Access-Control-Allow-Headers": strings.Join(corsAllowHeaders, ","),
	}

	allowed := g.config.AllowedOrigins
	if len(allowed) == 0 {
		headers["Access-Control-Allow-Origin"] = "*"
		return headers
	}
	for _, o := range allowed {
		if o == "*" {
			headers["Access-Control-Allow-Origin"] = "*"
			return headers
		}
	}
	for _, o := range allowed {
		if origin != "" && strings.EqualFold(o, origin) {
			headers["Access-Control-Allow-Origin"] = origin
			headers["Vary"] = "Origin"
			break
		}
	}
	return headers
}

func (g *Gateway) matchRoute(path string) bool {
	return strings.TrimRight(path, "/") == strings.TrimRight(g.config.RoutePath, "/")
}

// streamHeaders 事件流响应头。无论运行时返回什么类型，客户端都按 SSE 解析。
func streamHeaders() map[string]string {
	return map[string]string{
		"Content-Type":  streamContentType,
		"Cache-Control": "no-cache",
		"Connection":    "keep-alive",
	}
}
