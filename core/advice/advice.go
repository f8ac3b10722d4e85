package advice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/trezcool/educonnect/core"
)

// FallbackAdvice is returned whenever no advice could be generated.
const FallbackAdvice = "Não foi possível gerar uma análise personalizada no momento. " +
	"Continue focado nos estudos e mantenha a consistência!"

var adviceTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "educonnect_advice_total",
	Help: "Number of advice requests, by source (generated, cache, fallback).",
}, []string{"source"})

// Grades holds the grades of a subject per bimester. Missing grades are null.
type Grades struct {
	Bimester1 decimal.NullDecimal `json:"bimester1"`
	Bimester2 decimal.NullDecimal `json:"bimester2"`
	Bimester3 decimal.NullDecimal `json:"bimester3"`
	Bimester4 decimal.NullDecimal `json:"bimester4"`
}

// Average returns the average of the known grades.
func (g Grades) Average() decimal.NullDecimal {
	var (
		sum decimal.Decimal
		n   int64
	)
	for _, grade := range []decimal.NullDecimal{g.Bimester1, g.Bimester2, g.Bimester3, g.Bimester4} {
		if grade.Valid {
			sum = sum.Add(grade.Decimal)
			n++
		}
	}
	if n == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(sum.Div(decimal.NewFromInt(n)).Round(2))
}

// Subject is the performance of a student in a school subject.
type Subject struct {
	Name       string          `json:"name" validate:"required"`
	Teacher    string          `json:"teacher,omitempty"`
	Grades     Grades          `json:"grades"`
	Attendance decimal.Decimal `json:"attendance"` // percentage
}

// Generator is an external text-generation collaborator.
type Generator interface {
	GenerateAdvice(ctx context.Context, studentName string, subjects []Subject) (string, error)
}

// Prompt builds the instruction sent to a text-generation model.
func Prompt(studentName string, subjects []Subject) string {
	data, _ := json.Marshal(subjects) // cannot fail: plain data
	return strings.Join([]string{
		fmt.Sprintf("Como assistente virtual da escola, analise as notas do aluno %s.", studentName),
		fmt.Sprintf("Disciplinas e notas: %s.", data),
		"Dê um conselho curto e motivador para o aluno ou seus pais sobre o desempenho acadêmico, " +
			"destacando onde ele está indo bem e onde pode melhorar.",
		"Responda em Português do Brasil.",
	}, "\n")
}

// Service asks a Generator for advice, isolating the caller from its failures.
type Service struct {
	gen     Generator
	timeout time.Duration
	cache   *expirable.LRU[string, string]
	logger  core.Logger
}

// NewService returns a Service. gen may be nil, in which case every advice is FallbackAdvice.
func NewService(gen Generator, conf core.AdviceConfig, logger core.Logger) *Service {
	svc := &Service{
		gen:     gen,
		timeout: conf.Timeout,
		logger:  logger,
	}
	if conf.CacheSize > 0 {
		svc.cache = expirable.NewLRU[string, string](conf.CacheSize, nil, conf.CacheTTL)
	}
	return svc
}

// Advise returns a short advice on the student's performance.
// It never fails: any error, timeout or empty answer yields FallbackAdvice.
func (svc *Service) Advise(ctx context.Context, studentName string, subjects []Subject) string {
	studentName = core.CleanString(studentName)
	if svc.gen == nil || studentName == "" {
		adviceTotal.WithLabelValues("fallback").Inc()
		return FallbackAdvice
	}

	key := cacheKey(studentName, subjects)
	if svc.cache != nil {
		if text, ok := svc.cache.Get(key); ok {
			adviceTotal.WithLabelValues("cache").Inc()
			return text
		}
	}

	if svc.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, svc.timeout)
		defer cancel()
	}

	text, err := svc.generate(ctx, studentName, subjects)
	if err != nil {
		svc.logger.Warn(fmt.Sprintf("generating advice: %v", err), err)
		adviceTotal.WithLabelValues("fallback").Inc()
		return FallbackAdvice
	}
	text = strings.TrimSpace(text)
	if text == "" {
		adviceTotal.WithLabelValues("fallback").Inc()
		return FallbackAdvice
	}

	if svc.cache != nil {
		svc.cache.Add(key, text)
	}
	adviceTotal.WithLabelValues("generated").Inc()
	return text
}

// generate calls the Generator, recovering from its panics and honoring ctx even if it does not.
func (svc *Service) generate(ctx context.Context, studentName string, subjects []Subject) (string, error) {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("advice generator panicked: %v", r)}
			}
		}()
		text, err := svc.gen.GenerateAdvice(ctx, studentName, subjects)
		done <- result{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func cacheKey(studentName string, subjects []Subject) string {
	data, _ := json.Marshal(struct {
		Name     string    `json:"name"`
		Subjects []Subject `json:"subjects"`
	}{studentName, subjects})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
