package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Fingerprint identifica um cliente de forma aproximada (endereço + user agent).
// Não é identidade criptográfica: clientes atrás do mesmo NAT com o mesmo
// user agent caem no mesmo balde.
type Fingerprint string

const (
	// UnknownFingerprint é usado quando não há endereço nem user agent.
	// O tráfego não identificável continua limitado, num balde único.
	UnknownFingerprint Fingerprint = "unknown"

	UnknownAddress = "unknown_ip"
	UnknownAgent   = "unknown_ua"

	fingerprintSep = "|"
)

// Identity é o descritor da requisição a partir do qual se deriva o Fingerprint.
type Identity struct {
	Address string
	Agent   string
}

// Fingerprint é determinístico: mesma dupla endereço/agente, mesmo resultado.
func (id Identity) Fingerprint() Fingerprint {
	addr := strings.TrimSpace(id.Address)
	agent := strings.TrimSpace(id.Agent)
	if addr == "" && agent == "" {
		return UnknownFingerprint
	}
	if addr == "" {
		addr = UnknownAddress
	}
	if agent == "" {
		agent = UnknownAgent
	}
	return Fingerprint(addr + fingerprintSep + agent)
}

// Limiter decide se a próxima requisição de um fingerprint pode seguir.
//
// Check nunca é uma consulta pura: admitir registra a requisição na janela,
// rejeitar incrementa a penalidade.
type Limiter interface {
	Check(Fingerprint) Decision
}

type Decision struct {
	Allowed bool

	// RetryAfter é o tempo até uma vaga abrir na janela. Só vale quando bloqueado.
	RetryAfter time.Duration
	// PenaltyLevel é o contador de violações do fingerprint no momento da decisão.
	PenaltyLevel int
	Message      string

	// Limit/Remaining alimentam os headers X-RateLimit-*.
	Limit     int
	Remaining int

	// Blocked indica rejeição pela blocklist, antes de consultar o limiter.
	Blocked bool
}

func (d Decision) RetryAfterMillis() int64 { return d.RetryAfter.Milliseconds() }

// RetryAfterSeconds arredonda para cima; nunca devolve 0 para um atraso positivo.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

// Reject monta a decisão de rejeição com a mensagem padrão.
func Reject(retryAfter time.Duration, penalty, limit int) Decision {
	d := Decision{
		Allowed:      false,
		RetryAfter:   retryAfter,
		PenaltyLevel: penalty,
		Limit:        limit,
	}
	d.Message = fmt.Sprintf("Too many requests. Please try again in %d seconds.", d.RetryAfterSeconds())
	return d
}
