// Package ratelimit fornece adapters HTTP (net/http) para rate limit adaptativo e limite de concorrência
// na frente da API da loja.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - application: casos de uso (decisão allow/deny, bloqueio por reincidência, acquire/timeout) sem net/http
//   - infra: implementações concretas (janela deslizante com penalidade, token bucket, Redis, semáforo)
//   - ratelimit (este pacote): middlewares HTTP + extração de identidade + tradução para status/headers
//
// Fluxo por requisição:
//
//  1. Extrai a identidade do cliente (IP/XFF/header + User-Agent)
//  2. Chama a camada application para obter a decisão
//  3. Se bloqueado, responde 429 com Retry-After (rate limit) ou 503 (concorrência)
//  4. Se permitido, chama o próximo handler (rotas da loja ou reverse proxy)
package ratelimit
