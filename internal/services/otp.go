package services

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	otpMin = 100000
	otpMax = 999999
)

var otpSpan = big.NewInt(otpMax - otpMin + 1)

// GenerateOTP returns a uniformly distributed 6-digit code in [100000, 999999].
func GenerateOTP() string {
	n, err := rand.Int(rand.Reader, otpSpan)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		panic("otp: crypto/rand: " + err.Error())
	}
	return strconv.FormatInt(n.Int64()+otpMin, 10)
}
