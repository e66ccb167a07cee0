// Package normalizer turns raw pattern captures into typed transactions.
package normalizer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-categorizer/internal/logger"
	"github.com/insightdelivered/statement-categorizer/internal/models"
	"github.com/insightdelivered/statement-categorizer/internal/parser"
)

var (
	// ErrExcluded marks a record whose descriptor is on the profile's exclusion list.
	// It is a rejection, not a failure.
	ErrExcluded = errors.New("excluded descriptor")
	// ErrInvalidDate marks a date token that does not form a calendar date.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidAmount marks an amount token that is not a number.
	ErrInvalidAmount = errors.New("invalid amount")
)

// monthAbbrev maps Portuguese month abbreviations to month numbers.
var monthAbbrev = map[string]time.Month{
	"JAN": time.January,
	"FEV": time.February,
	"MAR": time.March,
	"ABR": time.April,
	"MAI": time.May,
	"JUN": time.June,
	"JUL": time.July,
	"AGO": time.August,
	"SET": time.September,
	"OUT": time.October,
	"NOV": time.November,
	"DEZ": time.December,
}

var filenameStamp = regexp.MustCompile(`(\d{4})-(\d{2})`)

// Context carries the per-document date information that tokens lack.
type Context struct {
	Year  int
	Month time.Month // zero when the document name has no month
}

// ContextFromFilename reads the first YYYY-MM stamp in a document name.
// Without one the year of now is used and the month stays unknown.
func ContextFromFilename(name string, now time.Time) Context {
	m := filenameStamp.FindStringSubmatch(name)
	if m == nil {
		return Context{Year: now.Year()}
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	if month < 1 || month > 12 {
		return Context{Year: year}
	}
	return Context{Year: year, Month: time.Month(month)}
}

// Normalizer converts raw triples under one issuer profile.
type Normalizer struct {
	profile *parser.IssuerProfile
	now     func() time.Time
}

// New returns a Normalizer. A nil clock means time.Now.
func New(p *parser.IssuerProfile, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{profile: p, now: now}
}

// Normalize resolves the date, amount and descriptor of a triple. The
// returned transaction has no category yet. Excluded descriptors yield
// ErrExcluded; malformed dates or amounts are logged and rejected.
func (n *Normalizer) Normalize(ctx context.Context, t models.RawTriple, c Context) (models.Transaction, error) {
	log := logger.FromContext(ctx)

	descriptor := strings.Join(strings.Fields(t.Descriptor), " ")
	if n.Excluded(descriptor) {
		return models.Transaction{}, ErrExcluded
	}

	date, err := n.resolveDate(ctx, t.Date, c)
	if err != nil {
		log.Warn().Err(err).Str("descriptor", descriptor).Msg("rejected record")
		return models.Transaction{}, err
	}

	amount, err := n.resolveAmount(t.Amount)
	if err != nil {
		log.Warn().Err(err).Str("descriptor", descriptor).Msg("rejected record")
		return models.Transaction{}, err
	}

	return models.Transaction{
		Date:       date,
		Descriptor: descriptor,
		Amount:     amount,
	}, nil
}

// Excluded reports whether the descriptor is on the exclusion list, compared
// exactly or by containment depending on the profile.
func (n *Normalizer) Excluded(descriptor string) bool {
	for _, term := range n.profile.ExcludedTerms {
		if term == "" {
			continue
		}
		switch n.profile.ExclusionMode {
		case parser.ExcludeContains:
			if strings.Contains(descriptor, term) {
				return true
			}
		default:
			if descriptor == term {
				return true
			}
		}
	}
	return false
}

func (n *Normalizer) resolveDate(ctx context.Context, token string, c Context) (time.Time, error) {
	var (
		day   int
		month time.Month
		year  int
		err   error
	)

	switch n.profile.DateMode {
	case parser.DateDayMonthAbbrev:
		fields := strings.Fields(token)
		if len(fields) != 2 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, token)
		}
		if day, err = strconv.Atoi(fields[0]); err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, token)
		}
		abbrev := strings.ToUpper(fields[1])
		m, ok := monthAbbrev[abbrev]
		if !ok {
			log := logger.FromContext(ctx)
			log.Warn().Str("month_token", abbrev).Msg("unknown month abbreviation, assuming January")
			m = time.January
		}
		month = m
		year = c.Year
		if year == 0 {
			year = n.now().Year()
		}
	default:
		parts := strings.Split(strings.TrimSpace(token), "/")
		if len(parts) != 2 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, token)
		}
		d, errD := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		if errD != nil || errM != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, token)
		}
		day, month, year = d, time.Month(m), n.now().Year()
	}

	date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if date.Day() != day || date.Month() != month || date.Year() != year {
		return time.Time{}, fmt.Errorf("%w: %q in %d", ErrInvalidDate, token, year)
	}
	return date, nil
}

func (n *Normalizer) resolveAmount(token string) (decimal.Decimal, error) {
	s := strings.TrimSpace(token)
	s = strings.ReplaceAll(s, "−", "-")
	switch n.profile.Decimal {
	case parser.DecimalPoint:
		s = strings.ReplaceAll(s, ",", "")
	default:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrInvalidAmount, token)
	}
	return amount.Round(2), nil
}
