package middleware

import (
	"net"
	"net/http"
	"net/http/pprof"

	"github.com/go-chi/chi/v5"
)

// MountPprof mounts the net/http/pprof handlers under /debug/pprof, restricted
// to clients whose remote address falls within one of the allowed CIDR ranges.
// Requests from outside the allowlist receive 404 to avoid advertising the
// endpoint's existence.
func MountPprof(r chi.Router, allowedCIDRs []string) {
	nets := make([]*net.IPNet, 0, len(allowedCIDRs))
	for _, cidr := range allowedCIDRs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue
		}
		nets = append(nets, ipNet)
	}

	guard := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				host = r.RemoteAddr
			}
			ip := net.ParseIP(host)
			if ip == nil || !ipAllowed(ip, nets) {
				http.NotFound(w, r)
				return
			}
			next(w, r)
		}
	}

	r.Route("/debug/pprof", func(r chi.Router) {
		r.Get("/", guard(pprof.Index))
		r.Get("/cmdline", guard(pprof.Cmdline))
		r.Get("/profile", guard(pprof.Profile))
		r.Get("/symbol", guard(pprof.Symbol))
		r.Get("/trace", guard(pprof.Trace))
		r.Get("/{name}", guard(func(w http.ResponseWriter, req *http.Request) {
			pprof.Handler(chi.URLParam(req, "name")).ServeHTTP(w, req)
		}))
	})
}

func ipAllowed(ip net.IP, nets []*net.IPNet) bool {
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
