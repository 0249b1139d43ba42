package internal

import (
	"github.com/bits-and-blooms/bitset"

	"DepScanner/internal/scanner"
)

// InterestSet records which registered scanners matched a file.
type InterestSet interface {
	Get(index int) bool
	IsEmpty() bool
}

type interest32 uint32

func (s interest32) Get(i int) bool { return i >= 0 && i < 32 && s&(1<<uint(i)) != 0 }
func (s interest32) IsEmpty() bool  { return s == 0 }

type interest64 uint64

func (s interest64) Get(i int) bool { return i >= 0 && i < 64 && s&(1<<uint(i)) != 0 }
func (s interest64) IsEmpty() bool  { return s == 0 }

// interestWide backs registries larger than one machine word.
type interestWide struct{ bits *bitset.BitSet }

func (s interestWide) Get(i int) bool { return i >= 0 && s.bits.Test(uint(i)) }
func (s interestWide) IsEmpty() bool  { return s.bits.None() }

var noInterest InterestSet = interest32(0)

// interestBuilder evaluates every scanner against c and returns the set.
// On a predicate error it returns the index of the failing scanner.
type interestBuilder func(scanners []scanner.Scanner, c scanner.Candidate) (InterestSet, int, error)

// newInterestBuilder picks the representation once per registry size.
func newInterestBuilder(n int) interestBuilder {
	switch {
	case n <= 32:
		return func(scanners []scanner.Scanner, c scanner.Candidate) (InterestSet, int, error) {
			var w uint32
			for i, s := range scanners {
				ok, err := s.ShouldScan(c)
				if err != nil {
					return nil, i, err
				}
				if ok {
					w |= 1 << uint(i)
				}
			}
			return interest32(w), -1, nil
		}
	case n <= 64:
		return func(scanners []scanner.Scanner, c scanner.Candidate) (InterestSet, int, error) {
			var w uint64
			for i, s := range scanners {
				ok, err := s.ShouldScan(c)
				if err != nil {
					return nil, i, err
				}
				if ok {
					w |= 1 << uint(i)
				}
			}
			return interest64(w), -1, nil
		}
	default:
		return func(scanners []scanner.Scanner, c scanner.Candidate) (InterestSet, int, error) {
			var bs *bitset.BitSet // allocated on first match only
			for i, s := range scanners {
				ok, err := s.ShouldScan(c)
				if err != nil {
					return nil, i, err
				}
				if ok {
					if bs == nil {
						bs = bitset.New(uint(n))
					}
					bs.Set(uint(i))
				}
			}
			if bs == nil {
				return noInterest, -1, nil
			}
			return interestWide{bits: bs}, -1, nil
		}
	}
}

// allInterest returns a set with every one of n scanners selected.
func allInterest(n int) InterestSet {
	switch {
	case n == 0:
		return noInterest
	case n <= 32:
		return interest32(uint32(1<<uint(n)) - 1)
	case n <= 64:
		if n == 64 {
			return interest64(^uint64(0))
		}
		return interest64(uint64(1)<<uint(n) - 1)
	default:
		bs := bitset.New(uint(n))
		for i := 0; i < n; i++ {
			bs.Set(uint(i))
		}
		return interestWide{bits: bs}
	}
}
