package token

import (
	"math/big"
	"regexp"
	"strings"

	clierr "github.com/ggonzalez94/transfer-cli/internal/errors"
)

// Decimals is the number of base-unit digits per whole token.
const Decimals = 24

var amountPattern = regexp.MustCompile(`^([0-9]+(?:\.[0-9]+)?)\s*([a-zA-Z]*)$`)

// Balance is an exact non-negative token amount in base (yocto) units.
type Balance struct {
	yocto *big.Int
}

func FromYocto(v *big.Int) Balance {
	if v == nil {
		return Balance{yocto: new(big.Int)}
	}
	return Balance{yocto: new(big.Int).Set(v)}
}

func Zero() Balance { return Balance{yocto: new(big.Int)} }

func (b Balance) Yocto() *big.Int {
	if b.yocto == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.yocto)
}

func (b Balance) Cmp(other Balance) int {
	return b.Yocto().Cmp(other.Yocto())
}

func (b Balance) IsZero() bool { return b.Yocto().Sign() == 0 }

// String renders the canonical human form, e.g. "1.5 NEAR" or "0 NEAR".
func (b Balance) String() string {
	return formatDecimal(b.Yocto().String(), Decimals) + " NEAR"
}

// Parse accepts whole-token amounts ("5", "0.5 NEAR", "10NEAR") and raw
// base-unit amounts ("10000yoctoNEAR"). A bare number means whole tokens.
func Parse(input string) (Balance, error) {
	norm := strings.TrimSpace(input)
	m := amountPattern.FindStringSubmatch(norm)
	if m == nil {
		return Balance{}, clierr.New(clierr.CodeUsage, "amount must look like 10NEAR, 0.5near or 10000yoctonear")
	}
	number, unit := m[1], strings.ToLower(m[2])

	switch unit {
	case "", "near":
		base, err := decimalToBaseUnits(number, Decimals)
		if err != nil {
			return Balance{}, err
		}
		v, _ := new(big.Int).SetString(base, 10)
		return Balance{yocto: v}, nil
	case "yoctonear", "yocto":
		if strings.Contains(number, ".") {
			return Balance{}, clierr.New(clierr.CodeUsage, "yoctoNEAR amounts must be whole numbers")
		}
		v, ok := new(big.Int).SetString(number, 10)
		if !ok {
			return Balance{}, clierr.New(clierr.CodeUsage, "invalid yoctoNEAR amount")
		}
		return Balance{yocto: v}, nil
	default:
		return Balance{}, clierr.New(clierr.CodeUsage, "unknown amount unit (expected NEAR or yoctoNEAR)")
	}
}

func formatDecimal(baseUnits string, decimals int) string {
	n := new(big.Int)
	n.SetString(baseUnits, 10)
	if decimals == 0 {
		return n.String()
	}

	s := n.String()
	if len(s) <= decimals {
		pad := strings.Repeat("0", decimals-len(s)+1)
		s = pad + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := s[len(s)-decimals:]
	fracPart = strings.TrimRight(fracPart, "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}

func decimalToBaseUnits(decimal string, decimals int) (string, error) {
	parts := strings.SplitN(decimal, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > decimals {
		return "", clierr.New(clierr.CodeUsage, "amount precision exceeds 24 decimal places")
	}

	fracPart = fracPart + strings.Repeat("0", decimals-len(fracPart))
	combined := intPart + fracPart
	combined = strings.TrimLeft(combined, "0")
	if combined == "" {
		return "0", nil
	}
	if _, ok := new(big.Int).SetString(combined, 10); !ok {
		return "", clierr.New(clierr.CodeUsage, "invalid decimal amount")
	}
	return combined, nil
}
