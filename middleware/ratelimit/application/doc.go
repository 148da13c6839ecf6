// Package application contém os casos de uso (regras de aplicação) para rate limit,
// bloqueio por reincidência e limite de concorrência.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Decide(ctx, identity) retorna uma Decision (allow/deny + retry-after + penalidade).
package application
