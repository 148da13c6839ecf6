// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - AdaptiveStore: janela deslizante por fingerprint com penalidade progressiva
//   - BucketStore: token bucket por fingerprint usando golang.org/x/time/rate
//   - MemoryStatsStore / RedisStatsStore: estatísticas de decisão
//   - MemoryBlocklist / RedisBlocklist: bloqueio temporário de reincidentes
//   - ChanPool: semáforo simples para limite de concorrência
package infra
