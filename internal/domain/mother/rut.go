package mother

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidRUT = errors.New("rut inválido")

// NormalizeRUT strips dots and whitespace, upper-cases the check digit and
// returns the canonical NNNNNNNN-DV form.
func NormalizeRUT(rut string) (string, error) {
	rut = strings.ToUpper(strings.TrimSpace(rut))
	rut = strings.ReplaceAll(rut, ".", "")
	rut = strings.ReplaceAll(rut, " ", "")

	if !strings.Contains(rut, "-") {
		if len(rut) < 2 {
			return "", ErrInvalidRUT
		}
		rut = rut[:len(rut)-1] + "-" + rut[len(rut)-1:]
	}

	parts := strings.SplitN(rut, "-", 2)
	if len(parts) != 2 || parts[0] == "" || len(parts[1]) != 1 {
		return "", ErrInvalidRUT
	}

	body, dv := parts[0], parts[1]
	n, err := strconv.Atoi(body)
	if err != nil || n <= 0 {
		return "", ErrInvalidRUT
	}
	if dv != "K" && (dv < "0" || dv > "9") {
		return "", ErrInvalidRUT
	}

	if checkDigit(n) != dv {
		return "", fmt.Errorf("%w: dígito verificador incorrecto", ErrInvalidRUT)
	}
	return fmt.Sprintf("%d-%s", n, dv), nil
}

// checkDigit computes the modulo-11 check digit for a RUT body.
func checkDigit(body int) string {
	sum := 0
	factor := 2
	for body > 0 {
		sum += (body % 10) * factor
		body /= 10
		factor++
		if factor > 7 {
			factor = 2
		}
	}
	switch r := 11 - sum%11; r {
	case 11:
		return "0"
	case 10:
		return "K"
	default:
		return strconv.Itoa(r)
	}
}
