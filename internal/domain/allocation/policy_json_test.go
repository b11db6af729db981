package allocation_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/meskan/granary/internal/domain/allocation"
	"github.com/meskan/granary/internal/domain/grain"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPolicyMarshal(t *testing.T) {
	Convey("Given policies of every kind", t, func() {
		d, err := allocation.NewDiscount(0.25)
		So(err, ShouldBeNil)

		Convey("When marshaling", func() {
			balanced, errB := json.Marshal(allocation.NewBalanced(grain.MustParse("100")))
			immediate, errI := json.Marshal(allocation.NewImmediate(grain.MustParse("0.5")))
			recent, errR := json.Marshal(allocation.NewRecent(grain.MustParse("2.5"), d))
			special, errS := json.Marshal(allocation.NewSpecial(grain.MustParse("10"), "q3 bounty", "alice"))

			Convey("Then each carries its discriminant and a string budget", func() {
				So(errB, ShouldBeNil)
				So(string(balanced), ShouldEqual, `{"policyType":"BALANCED","budget":"100"}`)
				So(errI, ShouldBeNil)
				So(string(immediate), ShouldEqual, `{"policyType":"IMMEDIATE","budget":"0.5"}`)
				So(errR, ShouldBeNil)
				So(string(recent), ShouldEqual, `{"policyType":"RECENT","budget":"2.5","discount":0.25}`)
				So(errS, ShouldBeNil)
				So(string(special), ShouldEqual, `{"policyType":"SPECIAL","budget":"10","memo":"q3 bounty","recipient":"alice"}`)
			})
		})

		Convey("When marshaling an unknown kind", func() {
			_, err := json.Marshal(allocation.Policy{Kind: allocation.PolicyKind(42), Budget: grain.MustParse("1")})

			Convey("Then marshaling fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestPolicyUnmarshal(t *testing.T) {
	Convey("Given serialized policies", t, func() {
		Convey("When the payload is well formed", func() {
			var p allocation.Policy
			err := json.Unmarshal([]byte(`{"policyType":"RECENT","budget":"40","discount":0.1}`), &p)

			Convey("Then the policy round-trips", func() {
				So(err, ShouldBeNil)
				So(p.Kind, ShouldEqual, allocation.Recent)
				So(p.Budget.Equal(grain.MustParse("40")), ShouldBeTrue)
				So(float64(p.Discount), ShouldEqual, 0.1)

				out, err := json.Marshal(p)
				So(err, ShouldBeNil)
				So(string(out), ShouldEqual, `{"policyType":"RECENT","budget":"40","discount":0.1}`)
			})
		})

		Convey("When a special policy is well formed", func() {
			var p allocation.Policy
			err := json.Unmarshal([]byte(`{"policyType":"SPECIAL","budget":"5","memo":"work","recipient":"bob"}`), &p)

			Convey("Then memo and recipient survive", func() {
				So(err, ShouldBeNil)
				So(p.Kind, ShouldEqual, allocation.Special)
				So(p.Memo, ShouldEqual, "work")
				So(p.Recipient, ShouldEqual, allocation.IdentityID("bob"))
			})
		})

		Convey("When the discriminant is missing", func() {
			var p allocation.Policy
			err := json.Unmarshal([]byte(`{"budget":"5"}`), &p)
			So(errors.Is(err, allocation.ErrBadPolicy), ShouldBeTrue)
		})

		Convey("When the discriminant is unknown", func() {
			var p allocation.Policy
			err := json.Unmarshal([]byte(`{"policyType":"LINEAR","budget":"5"}`), &p)
			So(errors.Is(err, allocation.ErrBadPolicy), ShouldBeTrue)
		})

		Convey("When an unknown field rides along", func() {
			var p allocation.Policy
			err := json.Unmarshal([]byte(`{"policyType":"BALANCED","budget":"5","surprise":1}`), &p)
			So(errors.Is(err, allocation.ErrBadPolicy), ShouldBeTrue)
		})

		Convey("When a field from another variant rides along", func() {
			var p allocation.Policy
			err := json.Unmarshal([]byte(`{"policyType":"BALANCED","budget":"5","discount":0.1}`), &p)
			So(errors.Is(err, allocation.ErrBadPolicy), ShouldBeTrue)
		})

		Convey("When a recent policy omits its discount", func() {
			var p allocation.Policy
			err := json.Unmarshal([]byte(`{"policyType":"RECENT","budget":"5"}`), &p)
			So(errors.Is(err, allocation.ErrBadPolicy), ShouldBeTrue)
		})

		Convey("When a special policy omits its recipient", func() {
			var p allocation.Policy
			err := json.Unmarshal([]byte(`{"policyType":"SPECIAL","budget":"5","memo":"work"}`), &p)
			So(errors.Is(err, allocation.ErrBadPolicy), ShouldBeTrue)
		})

		Convey("When the budget is a bare number", func() {
			var p allocation.Policy
			err := json.Unmarshal([]byte(`{"policyType":"BALANCED","budget":5}`), &p)
			So(err, ShouldNotBeNil)
		})

		Convey("When the budget is negative", func() {
			var p allocation.Policy
			err := json.Unmarshal([]byte(`{"policyType":"BALANCED","budget":"-5"}`), &p)
			So(errors.Is(err, allocation.ErrNegativeBudget), ShouldBeTrue)
		})

		Convey("When the discount is out of range", func() {
			var p allocation.Policy
			err := json.Unmarshal([]byte(`{"policyType":"RECENT","budget":"5","discount":1.5}`), &p)
			So(errors.Is(err, allocation.ErrDiscountRange), ShouldBeTrue)
		})
	})
}
