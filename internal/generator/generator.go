package generator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"funnelcli/internal/config"
	"funnelcli/internal/errors"
	"funnelcli/internal/exporter"
	"funnelcli/pkg/contracts/domain"
)

// Value pools of the synthetic population
var (
	Countries  = []string{"AT", "DE", "UK", "FR", "ES", "IT"}
	Devices    = []string{"iOS", "Android", "Web"}
	Channels   = []string{"Organic", "Paid Search", "Referral", "Social", "Influencer"}
	Categories = []string{"Groceries", "Restaurants", "Transport", "Online Shopping", "Travel", "Subscriptions"}
	TxTypes    = []string{"CARD_PAYMENT", "ATM_WITHDRAWAL", "TRANSFER"}
	CardTypes  = []string{domain.CardTypeVirtual, domain.CardTypePhysical}
)

// Journey rates
const (
	registrationRate   = 0.95
	kycRate            = 0.85
	kycApprovedBelow   = 0.75
	kycFailedBelow     = 0.90
	cardActivationRate = 0.80
	topupRate          = 0.70

	amountMu    = 3.0
	amountSigma = 0.6
)

// pcgStream is the fixed second word of the PCG state; only the seed varies.
const pcgStream = 0x5eed5eed5eed5eed

// Options controls a generation run
type Options struct {
	Seed        uint64
	Users       int
	SignupStart time.Time
	SignupEnd   time.Time
}

// OptionsFromConfig maps the generator settings onto a 2024 signup window
func OptionsFromConfig(cfg config.GeneratorConfig) Options {
	return Options{
		Seed:        cfg.Seed,
		Users:       cfg.Users,
		SignupStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		SignupEnd:   time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

// Generator produces a reproducible synthetic population
type Generator struct {
	opts Options
	rng  *rand.Rand
}

// New creates a generator seeded from opts.Seed
func New(opts Options) *Generator {
	return &Generator{
		opts: opts,
		rng:  rand.New(rand.NewPCG(opts.Seed, pcgStream)),
	}
}

// Generate builds the five raw tables from cfg
func Generate(cfg config.GeneratorConfig) (*domain.RawTables, error) {
	opts := OptionsFromConfig(cfg)
	if opts.Users < 1 {
		return nil, errors.NewConfigError(fmt.Sprintf("generator needs at least one user, got %d", opts.Users), nil)
	}
	return New(opts).Generate(), nil
}

// Generate walks every user through the funnel. Each later step only happens
// for a share of the users that reached the previous one.
func (g *Generator) Generate() *domain.RawTables {
	raw := &domain.RawTables{}

	days := int(g.opts.SignupEnd.Sub(g.opts.SignupStart).Hours() / 24)
	for id := 1; id <= g.opts.Users; id++ {
		signup := g.opts.SignupStart.Add(
			g.days(g.between(0, days)) + time.Duration(g.between(0, 24*3600))*time.Second,
		)
		raw.Users = append(raw.Users, domain.User{
			UserID:           int64(id),
			SignupAt:         signup,
			Country:          g.pick(Countries),
			Device:           g.pick(Devices),
			MarketingChannel: g.pick(Channels),
		})
	}

	for _, u := range raw.Users {
		raw.Funnel = append(raw.Funnel, funnelEvent(u.UserID, 1, domain.StepViewedSignup, u.SignupAt))

		if g.rng.Float64() >= registrationRate {
			continue
		}
		registered := u.SignupAt.Add(g.minutes(g.between(1, 60)))
		raw.Funnel = append(raw.Funnel, funnelEvent(u.UserID, 2, domain.StepStartedRegistration, registered))

		if g.rng.Float64() >= kycRate {
			continue
		}
		started := registered.Add(g.minutes(g.between(5, 120)))
		completed := started.Add(g.minutes(g.between(2, 60)))
		raw.KYC = append(raw.KYC, domain.KycAttempt{
			UserID:         u.UserID,
			KycStartedAt:   started,
			KycCompletedAt: completed,
			KycStatus:      g.kycOutcome(),
		})
		raw.Funnel = append(raw.Funnel, funnelEvent(u.UserID, 3, domain.StepKycCompleted, completed))
	}

	for _, k := range raw.KYC {
		if k.KycStatus != domain.KYCStatusApproved || g.rng.Float64() >= cardActivationRate {
			continue
		}
		activated := k.KycCompletedAt.Add(g.days(g.between(0, 7)) + g.minutes(g.between(10, 180)))
		raw.Cards = append(raw.Cards, domain.CardActivation{
			UserID:          k.UserID,
			CardActivatedAt: activated,
			CardType:        g.pick(CardTypes),
		})
		raw.Funnel = append(raw.Funnel, funnelEvent(k.UserID, 4, domain.StepCardActivated, activated))
	}

	for _, c := range raw.Cards {
		topup := c.CardActivatedAt.Add(time.Duration(g.between(1, 72)) * time.Hour)
		if g.rng.Float64() >= topupRate {
			continue
		}
		raw.Funnel = append(raw.Funnel, funnelEvent(c.UserID, 5, domain.StepFirstTopup, topup))

		for n := g.between(1, 20); n > 0; n-- {
			at := topup.Add(g.days(g.between(0, 90)) + g.minutes(g.between(0, 24*60)))
			raw.Transactions = append(raw.Transactions, domain.Transaction{
				UserID:          c.UserID,
				TransactionTime: at,
				AmountEUR:       g.amount(),
				Category:        g.pick(Categories),
				MerchantCountry: g.pick(Countries),
				TransactionType: g.pick(TxTypes),
			})
		}
	}

	return raw
}

// WriteRaw writes the generated tables as CSVs into the raw directory
func WriteRaw(ctx context.Context, paths *config.Paths, raw *domain.RawTables, logger *slog.Logger) ([]string, error) {
	return exporter.NewCSVWriter(paths, logger).WriteRawTables(ctx, raw)
}

func (g *Generator) kycOutcome() string {
	r := g.rng.Float64()
	switch {
	case r < kycApprovedBelow:
		return domain.KYCStatusApproved
	case r < kycFailedBelow:
		return domain.KYCStatusFailed
	default:
		return domain.KYCStatusPending
	}
}

// amount draws a lognormal amount in euros, rounded to cents
func (g *Generator) amount() string {
	v := math.Exp(amountMu + amountSigma*g.rng.NormFloat64())
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}

// between returns an int in [lo, hi]
func (g *Generator) between(lo, hi int) int {
	return lo + g.rng.IntN(hi-lo+1)
}

func (g *Generator) pick(values []string) string {
	return values[g.rng.IntN(len(values))]
}

func (g *Generator) days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func (g *Generator) minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}

func funnelEvent(userID int64, order int, name string, at time.Time) domain.FunnelEvent {
	return domain.FunnelEvent{
		UserID:    userID,
		StepOrder: strconv.Itoa(order),
		StepName:  name,
		EventTime: at,
	}
}
