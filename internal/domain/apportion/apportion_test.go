package apportion_test

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/meskan/granary/internal/domain/apportion"
	"github.com/meskan/granary/internal/domain/grain"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSplitConservation(t *testing.T) {
	Convey("Given a total and a weight vector", t, func() {
		Convey("When splitting 40 grain across weights 10 and 30", func() {
			shares, err := apportion.Split(grain.MustParse("40"), []float64{10, 30})

			Convey("Then the shares are exactly proportional", func() {
				So(err, ShouldBeNil)
				So(len(shares), ShouldEqual, 2)
				So(shares[0].Equal(grain.MustParse("10")), ShouldBeTrue)
				So(shares[1].Equal(grain.MustParse("30")), ShouldBeTrue)
			})
		})

		Convey("When the division does not come out even", func() {
			total := grain.MustParse("100")
			shares, err := apportion.Split(total, []float64{1, 2, 3})

			Convey("Then every atom is accounted for", func() {
				So(err, ShouldBeNil)
				So(grain.Sum(shares).Equal(total), ShouldBeTrue)
			})

			Convey("And the uneven shares land where expected", func() {
				So(err, ShouldBeNil)
				// 100/6 leaves one atom over; the largest remainder (index 0) absorbs it.
				So(shares[0].String(), ShouldEqual, "16.666666666666666667")
				So(shares[1].String(), ShouldEqual, "33.333333333333333333")
				So(shares[2].String(), ShouldEqual, "50")
			})
		})

		Convey("When splitting across many ragged weights", func() {
			total := grain.MustParse("12.345678901234567891")
			weights := []float64{0.1, 7, 3.14159, 0, 42, 0.000001, 11}
			shares, err := apportion.Split(total, weights)

			Convey("Then length and conservation hold", func() {
				So(err, ShouldBeNil)
				So(len(shares), ShouldEqual, len(weights))
				So(grain.Sum(shares).Equal(total), ShouldBeTrue)
			})

			Convey("And a zero weight receives nothing", func() {
				So(err, ShouldBeNil)
				So(shares[3].IsZero(), ShouldBeTrue)
			})
		})

		Convey("When the total is zero", func() {
			shares, err := apportion.Split(grain.Zero, []float64{1, 2})

			Convey("Then every share is zero", func() {
				So(err, ShouldBeNil)
				So(shares[0].IsZero(), ShouldBeTrue)
				So(shares[1].IsZero(), ShouldBeTrue)
			})
		})

		Convey("When a single weight takes everything", func() {
			total := grain.MustParse("7.5")
			shares, err := apportion.Split(total, []float64{13.37})

			Convey("Then it receives the full total", func() {
				So(err, ShouldBeNil)
				So(shares[0].Equal(total), ShouldBeTrue)
			})
		})
	})
}

func TestSplitTieBreaks(t *testing.T) {
	Convey("Given weights with equal remainders", t, func() {
		Convey("When two atoms go to three equal weights", func() {
			total, err := grain.FromUnits(big.NewInt(2))
			So(err, ShouldBeNil)

			shares, err := apportion.Split(total, []float64{1, 1, 1})

			Convey("Then lower indices win the extra atoms", func() {
				So(err, ShouldBeNil)
				one, uerr := grain.FromUnits(big.NewInt(1))
				So(uerr, ShouldBeNil)
				So(shares[0].Equal(one), ShouldBeTrue)
				So(shares[1].Equal(one), ShouldBeTrue)
				So(shares[2].IsZero(), ShouldBeTrue)
			})
		})

		Convey("When a single atom splits between two equal weights", func() {
			total, err := grain.FromUnits(big.NewInt(1))
			So(err, ShouldBeNil)

			shares, err := apportion.Split(total, []float64{1, 1})

			Convey("Then the first index takes it", func() {
				So(err, ShouldBeNil)
				So(shares[0].IsZero(), ShouldBeFalse)
				So(shares[1].IsZero(), ShouldBeTrue)
			})
		})
	})
}

func TestSplitDeterminism(t *testing.T) {
	Convey("Given identical inputs", t, func() {
		total := grain.MustParse("999.999999999999999999")
		weights := []float64{3.3, 1.1, 2.2, 1.1}

		Convey("When splitting twice", func() {
			first, err1 := apportion.Split(total, weights)
			second, err2 := apportion.Split(total, weights)

			Convey("Then the results are identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				for i := range first {
					So(first[i].Equal(second[i]), ShouldBeTrue)
				}
			})
		})
	})
}

func TestSplitProperties(t *testing.T) {
	Convey("Given a spread of totals and weight vectors", t, func() {
		totals := []grain.Amount{
			grain.MustParse("1"),
			grain.MustParse("0.000000000000000007"),
			grain.MustParse("1000000"),
			grain.MustParse("33.333333333333333333"),
		}
		weightSets := [][]float64{
			{1},
			{1, 1, 1, 1, 1, 1, 1},
			{0.5, 0.25, 0.125, 0.0625},
			{100, 0, 3, 0, 9},
			{1e-12, 1e12},
		}

		Convey("When splitting every combination", func() {
			for _, total := range totals {
				for _, weights := range weightSets {
					shares, err := apportion.Split(total, weights)
					So(err, ShouldBeNil)
					So(len(shares), ShouldEqual, len(weights))
					So(grain.Sum(shares).Equal(total), ShouldBeTrue)
				}
			}

			Convey("Then conservation held throughout", func() {
				So(true, ShouldBeTrue)
			})
		})
	})
}

func TestSplitValidation(t *testing.T) {
	Convey("Given invalid weight vectors", t, func() {
		total := grain.MustParse("10")

		Convey("When a weight is negative", func() {
			_, err := apportion.Split(total, []float64{1, -0.5})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, apportion.ErrInvalidWeight), ShouldBeTrue)
			})
		})

		Convey("When a weight is NaN", func() {
			_, err := apportion.Split(total, []float64{math.NaN()})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, apportion.ErrInvalidWeight), ShouldBeTrue)
			})
		})

		Convey("When a weight is infinite", func() {
			_, err := apportion.Split(total, []float64{math.Inf(1), 1})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, apportion.ErrInvalidWeight), ShouldBeTrue)
			})
		})

		Convey("When every weight is zero", func() {
			_, err := apportion.Split(total, []float64{0, 0, 0})

			Convey("Then the vector is degenerate", func() {
				So(errors.Is(err, apportion.ErrDegenerateWeights), ShouldBeTrue)
			})
		})

		Convey("When the vector is empty", func() {
			_, err := apportion.Split(total, nil)

			Convey("Then the vector is degenerate", func() {
				So(errors.Is(err, apportion.ErrDegenerateWeights), ShouldBeTrue)
			})
		})
	})
}
