// Copyright (c) 2026 Warden Team
// Warden - guardian-based social recovery
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"fmt"
	"math/big"
	"strings"
)

// ParseCoins parses the textual "<amount><denom>[,<amount><denom>...]" form.
// Order is preserved. An empty string yields an empty list.
func ParseCoins(s string) (Coins, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Coins{}, nil
	}
	parts := strings.Split(s, ",")
	out := make(Coins, 0, len(parts))
	for _, p := range parts {
		c, err := ParseCoin(p)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ParseCoin parses a single "<amount><denom>" value such as "100uatom".
func ParseCoin(s string) (Coin, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return Coin{}, fmt.Errorf("invalid coin %q: missing amount", s)
	}
	if i == len(s) {
		return Coin{}, fmt.Errorf("invalid coin %q: missing denomination", s)
	}
	amount, ok := new(big.Int).SetString(s[:i], 10)
	if !ok {
		return Coin{}, fmt.Errorf("invalid coin %q: bad amount", s)
	}
	denom := s[i:]
	if strings.ContainsAny(denom, " \t,") {
		return Coin{}, fmt.Errorf("invalid coin %q: bad denomination", s)
	}
	return Coin{Denom: denom, Amount: amount.String()}, nil
}

// Validate reports whether c round-trips through ParseCoin: the amount is a
// non-empty run of decimal digits and the denomination is non-empty, does not
// start with a digit and holds no whitespace or commas.
func (c Coin) Validate() error {
	if c.Amount == "" {
		return fmt.Errorf("invalid coin %q: missing amount", c.String())
	}
	for i := 0; i < len(c.Amount); i++ {
		if c.Amount[i] < '0' || c.Amount[i] > '9' {
			return fmt.Errorf("invalid coin %q: bad amount", c.String())
		}
	}
	if c.Denom == "" {
		return fmt.Errorf("invalid coin %q: missing denomination", c.String())
	}
	if c.Denom[0] >= '0' && c.Denom[0] <= '9' {
		return fmt.Errorf("invalid coin %q: denomination starts with a digit", c.String())
	}
	if strings.ContainsAny(c.Denom, " \t\r\n,") {
		return fmt.Errorf("invalid coin %q: bad denomination", c.String())
	}
	return nil
}

// Validate checks every coin in order and returns the first failure.
func (cs Coins) Validate() error {
	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}
