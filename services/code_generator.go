package services

import (
	"crypto/rand"
	"math/big"
)

const (
	codeLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeDigits  = "0123456789"
)

// CodeGenerator draws a candidate redemption code.
type CodeGenerator func() (string, error)

// RandomCode draws a code shaped like A12-345.
func RandomCode() (string, error) {
	buf := make([]byte, 0, 7)
	letter, err := pick(codeLetters)
	if err != nil {
		return "", err
	}
	buf = append(buf, letter)
	for i := 0; i < 5; i++ {
		if i == 2 {
			buf = append(buf, '-')
		}
		digit, err := pick(codeDigits)
		if err != nil {
			return "", err
		}
		buf = append(buf, digit)
	}
	return string(buf), nil
}

func pick(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return alphabet[n.Int64()], nil
}
