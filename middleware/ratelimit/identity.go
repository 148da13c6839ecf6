package ratelimit

import (
	"net"
	"net/http"
	"strings"

	"storefront-gateway/middleware/ratelimit/domain"
)

type IdentityFunc func(r *http.Request) domain.Identity

// DefaultIdentityFunc monta a identidade a partir do endereço e do User-Agent.
//
// O endereço vem, em ordem: do header keyHeader (ex: API key de parceiro/afiliado),
// do primeiro IP de X-Forwarded-For quando trustXFF, e por fim de RemoteAddr.
// Campos vazios ficam vazios; o fallback "unknown" é decidido em domain.Identity.
func DefaultIdentityFunc(keyHeader string, trustXFF bool) IdentityFunc {
	return func(r *http.Request) domain.Identity {
		return domain.Identity{
			Address: clientAddress(r, keyHeader, trustXFF),
			Agent:   strings.TrimSpace(r.UserAgent()),
		}
	}
}

func clientAddress(r *http.Request, keyHeader string, trustXFF bool) string {
	if keyHeader != "" {
		if v := strings.TrimSpace(r.Header.Get(keyHeader)); v != "" {
			return "key:" + v
		}
	}

	if trustXFF {
		// primeiro IP do X-Forwarded-For (cliente original)
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
