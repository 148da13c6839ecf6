// Package domain reúne os tipos do limitador: identidade do cliente,
// fingerprint, decisão de admissão e as portas (Limiter, Blocklist,
// StatsStore, SlotPool) implementadas em infra.
//
// Nada aqui conhece net/http, Redis ou relógio concreto.
package domain
