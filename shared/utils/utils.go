package utils

import (
	"fmt"
	"hash/crc32"
	"strconv"
	"sync/atomic"
	"time"
)

const (
	accountNumberBaseDigits     = 12
	accountNumberChecksumDigits = 4
	AccountNumberLength         = accountNumberBaseDigits + accountNumberChecksumDigits
)

// lastClock keeps readings strictly increasing within the process, so two
// calls in the same clock tick still yield different bases.
var lastClock atomic.Int64

// GenerateAccountNumber returns a candidate account number derived from the
// high-resolution clock. Uniqueness across processes is enforced by the
// store; callers regenerate on a unique violation.
func GenerateAccountNumber() string {
	now := time.Now().UnixNano()
	for {
		prev := lastClock.Load()
		if now <= prev {
			now = prev + 1
		}
		if lastClock.CompareAndSwap(prev, now) {
			break
		}
	}
	return AccountNumberFromClock(now)
}

// AccountNumberFromClock builds the 12-digit base from the low digits of a
// nanosecond reading and appends a 4-digit checksum of the base.
func AccountNumberFromClock(nanos int64) string {
	base := fmt.Sprintf("%0*d", accountNumberBaseDigits, nanos)
	base = base[len(base)-accountNumberBaseDigits:]
	return base + accountNumberChecksum(base)
}

func accountNumberChecksum(base string) string {
	sum := crc32.ChecksumIEEE([]byte(base)) & 0xffff
	return fmt.Sprintf("%0*d", accountNumberChecksumDigits, sum%10000)
}

// ValidateAccountNumber checks length, digits and checksum.
func ValidateAccountNumber(accountNumber string) bool {
	if len(accountNumber) != AccountNumberLength {
		return false
	}
	if _, err := strconv.ParseUint(accountNumber, 10, 64); err != nil {
		return false
	}
	base := accountNumber[:accountNumberBaseDigits]
	return accountNumber[accountNumberBaseDigits:] == accountNumberChecksum(base)
}
