package mintcap_test

import (
	"errors"
	"math"
	"testing"

	"github.com/meskan/granary/internal/domain/mintcap"
	. "github.com/smartystreets/goconvey/convey"
)

const week int64 = 7 * 24 * 60 * 60 * 1000

func weeklySchedule(lines ...mintcap.Line) mintcap.Schedule {
	return mintcap.Schedule{Granularity: mintcap.Weekly, Lines: lines}
}

func TestApplyCapScaling(t *testing.T) {
	Convey("Given two disjoint prefixes each with ceiling 100", t, func() {
		prefixA := mintcap.MustAddress("forge", "alpha")
		prefixB := mintcap.MustAddress("forge", "beta")
		a1 := mintcap.MustAddress("forge", "alpha", "pull", "1")
		a2 := mintcap.MustAddress("forge", "alpha", "pull", "2")
		b1 := mintcap.MustAddress("forge", "beta", "pull", "9")

		s := weeklySchedule(
			mintcap.Line{Prefix: prefixA, Periods: []mintcap.Period{{StartMs: 0, Ceiling: 100}}},
			mintcap.Line{Prefix: prefixB, Periods: []mintcap.Period{{StartMs: 0, Ceiling: 100}}},
		)
		partition := []mintcap.Window{
			{StartMs: 0, EndMs: week, Addresses: []mintcap.Address{a1, a2, b1}},
		}
		weights := map[mintcap.Address]float64{a1: 100, a2: 50, b1: 50}

		Convey("When one prefix sums to 150 and the other to 50", func() {
			adjusted, err := mintcap.ApplyCap(weights, s, partition)

			Convey("Then the hot prefix scales by exactly two thirds", func() {
				So(err, ShouldBeNil)
				So(adjusted[a1], ShouldEqual, 100*(2.0/3.0))
				So(adjusted[a2], ShouldEqual, 50*(2.0/3.0))
				So(adjusted[a1]+adjusted[a2], ShouldAlmostEqual, 100)
			})

			Convey("And the cool prefix is untouched", func() {
				So(err, ShouldBeNil)
				So(adjusted[b1], ShouldEqual, 50.0)
			})

			Convey("And the input map is not mutated", func() {
				So(err, ShouldBeNil)
				So(weights[a1], ShouldEqual, 100.0)
				So(weights[a2], ShouldEqual, 50.0)
			})
		})
	})

	Convey("Given a ceiling of zero", t, func() {
		prefix := mintcap.MustAddress("forge", "alpha")
		addr := mintcap.MustAddress("forge", "alpha", "pull", "1")

		s := weeklySchedule(mintcap.Line{
			Prefix:  prefix,
			Periods: []mintcap.Period{{StartMs: 0, Ceiling: 0}},
		})
		partition := []mintcap.Window{
			{StartMs: 0, EndMs: week, Addresses: []mintcap.Address{addr}},
		}

		Convey("When applying the cap", func() {
			adjusted, err := mintcap.ApplyCap(map[mintcap.Address]float64{addr: 5}, s, partition)

			Convey("Then matching weights zero out", func() {
				So(err, ShouldBeNil)
				So(adjusted[addr], ShouldEqual, 0.0)
			})
		})
	})
}

func TestApplyCapCheckpoints(t *testing.T) {
	Convey("Given a line whose ceiling drops at the second week", t, func() {
		prefix := mintcap.MustAddress("forge", "alpha")
		w0 := mintcap.MustAddress("forge", "alpha", "pull", "1")
		w1 := mintcap.MustAddress("forge", "alpha", "pull", "2")

		s := weeklySchedule(mintcap.Line{
			Prefix: prefix,
			Periods: []mintcap.Period{
				{StartMs: 0, Ceiling: 128},
				{StartMs: week, Ceiling: 16},
			},
		})
		partition := []mintcap.Window{
			{StartMs: 0, EndMs: week, Addresses: []mintcap.Address{w0}},
			{StartMs: week, EndMs: 2 * week, Addresses: []mintcap.Address{w1}},
		}
		weights := map[mintcap.Address]float64{w0: 64, w1: 64}

		Convey("When applying the cap", func() {
			adjusted, err := mintcap.ApplyCap(weights, s, partition)

			Convey("Then only the week under the lower ceiling scales", func() {
				So(err, ShouldBeNil)
				So(adjusted[w0], ShouldEqual, 64.0)
				So(adjusted[w1], ShouldEqual, 16.0)
			})
		})
	})

	Convey("Given a line whose first checkpoint starts late", t, func() {
		prefix := mintcap.MustAddress("forge", "alpha")
		w0 := mintcap.MustAddress("forge", "alpha", "pull", "1")
		w1 := mintcap.MustAddress("forge", "alpha", "pull", "2")

		s := weeklySchedule(mintcap.Line{
			Prefix:  prefix,
			Periods: []mintcap.Period{{StartMs: week, Ceiling: 16}},
		})
		partition := []mintcap.Window{
			{StartMs: 0, EndMs: week, Addresses: []mintcap.Address{w0}},
			{StartMs: week, EndMs: 2 * week, Addresses: []mintcap.Address{w1}},
		}
		weights := map[mintcap.Address]float64{w0: 1000, w1: 64}

		Convey("When applying the cap", func() {
			adjusted, err := mintcap.ApplyCap(weights, s, partition)

			Convey("Then no ceiling binds before the first checkpoint", func() {
				So(err, ShouldBeNil)
				So(adjusted[w0], ShouldEqual, 1000.0)
				So(adjusted[w1], ShouldEqual, 16.0)
			})
		})
	})

	Convey("Given a partition starting past several checkpoints", t, func() {
		prefix := mintcap.MustAddress("forge", "alpha")
		addr := mintcap.MustAddress("forge", "alpha", "pull", "1")

		s := weeklySchedule(mintcap.Line{
			Prefix: prefix,
			Periods: []mintcap.Period{
				{StartMs: 0, Ceiling: 1000},
				{StartMs: week, Ceiling: 100},
				{StartMs: 2 * week, Ceiling: 16},
			},
		})
		partition := []mintcap.Window{
			{StartMs: 2 * week, EndMs: 3 * week, Addresses: []mintcap.Address{addr}},
		}

		Convey("When applying the cap", func() {
			adjusted, err := mintcap.ApplyCap(map[mintcap.Address]float64{addr: 64}, s, partition)

			Convey("Then the pointer lands on the latest reached checkpoint", func() {
				So(err, ShouldBeNil)
				So(adjusted[addr], ShouldEqual, 16.0)
			})
		})
	})
}

func TestApplyCapDefaultWeights(t *testing.T) {
	Convey("Given addresses the evaluator never weighed", t, func() {
		prefix := mintcap.MustAddress("forge", "alpha")
		u1 := mintcap.MustAddress("forge", "alpha", "pull", "1")
		u2 := mintcap.MustAddress("forge", "alpha", "pull", "2")
		u3 := mintcap.MustAddress("forge", "alpha", "pull", "3")

		s := weeklySchedule(mintcap.Line{
			Prefix:  prefix,
			Periods: []mintcap.Period{{StartMs: 0, Ceiling: 1}},
		})
		partition := []mintcap.Window{
			{StartMs: 0, EndMs: week, Addresses: []mintcap.Address{u1, u2}},
			{StartMs: week, EndMs: 2 * week, Addresses: []mintcap.Address{u3}},
		}

		Convey("When applying the cap over an empty weight map", func() {
			adjusted, err := mintcap.ApplyCap(nil, s, partition)

			Convey("Then unset weights count as 1 and only scaled entries materialize", func() {
				So(err, ShouldBeNil)
				So(adjusted[u1], ShouldEqual, 0.5)
				So(adjusted[u2], ShouldEqual, 0.5)
				_, present := adjusted[u3]
				So(present, ShouldBeFalse)
				So(len(adjusted), ShouldEqual, 2)
			})
		})
	})

	Convey("Given an empty partition", t, func() {
		addr := mintcap.MustAddress("x")
		s := weeklySchedule()

		Convey("When applying the cap", func() {
			adjusted, err := mintcap.ApplyCap(map[mintcap.Address]float64{addr: 3}, s, nil)

			Convey("Then the weights come back as a plain copy", func() {
				So(err, ShouldBeNil)
				So(adjusted[addr], ShouldEqual, 3.0)
				So(len(adjusted), ShouldEqual, 1)
			})
		})
	})
}

func TestApplyCapValidation(t *testing.T) {
	Convey("Given malformed cap input", t, func() {
		prefix := mintcap.MustAddress("forge", "alpha")
		addr := mintcap.MustAddress("forge", "alpha", "pull", "1")
		oneLine := mintcap.Line{Prefix: prefix, Periods: []mintcap.Period{{StartMs: 0, Ceiling: 10}}}
		oneWindow := []mintcap.Window{{StartMs: 0, EndMs: week, Addresses: []mintcap.Address{addr}}}

		Convey("When the granularity is not weekly", func() {
			s := mintcap.Schedule{Granularity: "DAILY", Lines: []mintcap.Line{oneLine}}
			_, err := mintcap.ApplyCap(nil, s, oneWindow)
			So(errors.Is(err, mintcap.ErrUnsupportedGranularity), ShouldBeTrue)
		})

		Convey("When a window does not span exactly one week", func() {
			windows := []mintcap.Window{{StartMs: 0, EndMs: week + 1, Addresses: nil}}
			_, err := mintcap.ApplyCap(nil, weeklySchedule(oneLine), windows)
			So(errors.Is(err, mintcap.ErrUnsupportedGranularity), ShouldBeTrue)
		})

		Convey("When a line's periods run backwards", func() {
			line := mintcap.Line{Prefix: prefix, Periods: []mintcap.Period{
				{StartMs: week, Ceiling: 10},
				{StartMs: 0, Ceiling: 10},
			}}
			_, err := mintcap.ApplyCap(nil, weeklySchedule(line), oneWindow)
			So(errors.Is(err, mintcap.ErrUnorderedPeriods), ShouldBeTrue)
		})

		Convey("When one prefix contains another", func() {
			inner := mintcap.Line{Prefix: addr, Periods: oneLine.Periods}
			_, err := mintcap.ApplyCap(nil, weeklySchedule(oneLine, inner), oneWindow)
			So(errors.Is(err, mintcap.ErrPrefixConflict), ShouldBeTrue)
		})

		Convey("When two lines share a prefix", func() {
			_, err := mintcap.ApplyCap(nil, weeklySchedule(oneLine, oneLine), oneWindow)
			So(errors.Is(err, mintcap.ErrPrefixConflict), ShouldBeTrue)
		})

		Convey("When a ceiling is negative or not finite", func() {
			neg := mintcap.Line{Prefix: prefix, Periods: []mintcap.Period{{StartMs: 0, Ceiling: -1}}}
			_, errNeg := mintcap.ApplyCap(nil, weeklySchedule(neg), oneWindow)
			nan := mintcap.Line{Prefix: prefix, Periods: []mintcap.Period{{StartMs: 0, Ceiling: math.NaN()}}}
			_, errNaN := mintcap.ApplyCap(nil, weeklySchedule(nan), oneWindow)

			So(errors.Is(errNeg, mintcap.ErrInvalidCeiling), ShouldBeTrue)
			So(errors.Is(errNaN, mintcap.ErrInvalidCeiling), ShouldBeTrue)
		})

		Convey("When the partition has a gap", func() {
			windows := []mintcap.Window{
				{StartMs: 0, EndMs: week, Addresses: nil},
				{StartMs: 2 * week, EndMs: 3 * week, Addresses: nil},
			}
			_, err := mintcap.ApplyCap(nil, weeklySchedule(oneLine), windows)
			So(errors.Is(err, mintcap.ErrInvalidPartition), ShouldBeTrue)
		})

		Convey("When an address is active in two windows", func() {
			windows := []mintcap.Window{
				{StartMs: 0, EndMs: week, Addresses: []mintcap.Address{addr}},
				{StartMs: week, EndMs: 2 * week, Addresses: []mintcap.Address{addr}},
			}
			_, err := mintcap.ApplyCap(nil, weeklySchedule(oneLine), windows)
			So(errors.Is(err, mintcap.ErrInvalidPartition), ShouldBeTrue)
		})

		Convey("When an input weight is negative or not finite", func() {
			_, errNeg := mintcap.ApplyCap(map[mintcap.Address]float64{addr: -2}, weeklySchedule(oneLine), oneWindow)
			_, errInf := mintcap.ApplyCap(map[mintcap.Address]float64{addr: math.Inf(1)}, weeklySchedule(oneLine), oneWindow)

			So(errors.Is(errNeg, mintcap.ErrInvalidWeight), ShouldBeTrue)
			So(errors.Is(errInf, mintcap.ErrInvalidWeight), ShouldBeTrue)
		})
	})
}
