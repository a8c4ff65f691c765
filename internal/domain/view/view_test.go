package view_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/rosterlens/internal/domain/model"
	"github.com/okian/rosterlens/internal/domain/view"
	. "github.com/smartystreets/goconvey/convey"
)

func roster() []model.StudentRecord {
	recs := []model.StudentRecord{
		{Name: "Asha Rao", RollNumber: "CS101", Username: "asha", Email: "asha@uni.edu"},
		{Name: "Ben Ode", RollNumber: "CS102", Username: "", Email: "ben@uni.edu"},
		{Name: "Chen Li", RollNumber: "CS103", Username: "chenli", Email: "chen@uni.edu"},
		{Name: "Dev Kumar", RollNumber: "CS104", Username: "ghost", Email: ""},
		{Name: "Eve Stone", RollNumber: "CS105", Username: "eve", Email: "eve@uni.edu"},
	}
	outcomes := map[string]model.Outcome{
		"asha":   model.Found("asha", 40, 20, 5),
		"chenli": model.Found("chenli", 3, 2, 0),
		"ghost":  model.NotFound("ghost"),
		"eve":    model.Found("eve", 0, 0, 0),
	}
	for i := range recs {
		recs[i].Row = i
		if o, ok := outcomes[recs[i].Username]; ok {
			recs[i].Apply(o)
		}
	}
	return recs
}

func names(recs []model.StudentRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Name
	}
	return out
}

func TestSearch(t *testing.T) {
	Convey("Given an enriched roster", t, func() {
		recs := roster()

		Convey("When searching with an empty query", func() {
			got := view.Search(recs, "   ")

			Convey("Then the full roster comes back in order", func() {
				So(cmp.Diff(recs, got), ShouldBeEmpty)
			})
		})

		Convey("When searching across fields case-insensitively", func() {
			So(names(view.Search(recs, "CHEN")), ShouldResemble, []string{"Chen Li"})
			So(names(view.Search(recs, "cs10")), ShouldResemble, names(recs))
			So(names(view.Search(recs, "ben@")), ShouldResemble, []string{"Ben Ode"})
			So(names(view.Search(recs, "ghost")), ShouldResemble, []string{"Dev Kumar"})
		})

		Convey("When a query matches nothing", func() {
			So(view.Search(recs, "zzz"), ShouldBeEmpty)
		})

		Convey("When the result is mutated", func() {
			got := view.Search(recs, "")
			got[0].Name = "changed"

			Convey("Then the input is untouched", func() {
				So(recs[0].Name, ShouldEqual, "Asha Rao")
			})
		})
	})
}

func TestFilters(t *testing.T) {
	Convey("Given an enriched roster", t, func() {
		recs := roster()

		Convey("Then the named predicates select the expected records", func() {
			So(names(view.Where(recs, view.ValidProfile)), ShouldResemble, []string{"Asha Rao", "Chen Li", "Eve Stone"})
			So(names(view.Where(recs, view.InvalidProfile)), ShouldResemble, []string{"Dev Kumar"})
			So(names(view.Where(recs, view.ZeroSolved)), ShouldResemble, []string{"Dev Kumar", "Eve Stone"})
		})

		Convey("Then TopN orders by solved and keeps roster order on ties", func() {
			So(names(view.TopN(recs, 2)), ShouldResemble, []string{"Asha Rao", "Chen Li"})
			So(names(view.TopN(recs, 10)), ShouldResemble, []string{"Asha Rao", "Chen Li", "Ben Ode", "Dev Kumar", "Eve Stone"})
			So(view.TopN(recs, 0), ShouldBeEmpty)
		})

		Convey("When filters are resolved by name", func() {
			valid, err := view.ParseFilter("Valid", 0)
			So(err, ShouldBeNil)
			So(len(valid(recs)), ShouldEqual, 3)

			top, err := view.ParseFilter("top", 1)
			So(err, ShouldBeNil)
			So(names(top(recs)), ShouldResemble, []string{"Asha Rao"})

			all, err := view.ParseFilter("", 0)
			So(err, ShouldBeNil)
			So(len(all(recs)), ShouldEqual, len(recs))

			_, err = view.ParseFilter("top", 0)
			So(errors.Is(err, view.ErrUnknownFilter), ShouldBeTrue)

			_, err = view.ParseFilter("best", 0)
			So(errors.Is(err, view.ErrUnknownFilter), ShouldBeTrue)
		})
	})
}

func TestSortBy(t *testing.T) {
	Convey("Given an enriched roster", t, func() {
		recs := roster()

		Convey("When sorting by total solved ascending", func() {
			got := view.SortBy(recs, view.KeyProblemsSolved, view.Asc)

			Convey("Then never-enriched records sort last", func() {
				So(names(got), ShouldResemble, []string{"Dev Kumar", "Eve Stone", "Chen Li", "Asha Rao", "Ben Ode"})
			})
		})

		Convey("When sorting by username", func() {
			asc := view.SortBy(recs, view.KeyUsername, view.Asc)
			desc := view.SortBy(recs, view.KeyUsername, view.Desc)

			Convey("Then empty usernames cluster at the end ascending", func() {
				So(names(asc), ShouldResemble, []string{"Asha Rao", "Chen Li", "Eve Stone", "Dev Kumar", "Ben Ode"})
			})

			Convey("Then descending is the exact reverse when there are no ties", func() {
				rev := make([]model.StudentRecord, len(asc))
				for i := range asc {
					rev[len(asc)-1-i] = asc[i]
				}
				So(cmp.Diff(rev, desc), ShouldBeEmpty)
			})
		})

		Convey("When sorting with ties", func() {
			got := view.SortBy(recs, view.KeyProfileFound, view.Desc)

			Convey("Then ties keep input order", func() {
				So(names(got), ShouldResemble, []string{"Ben Ode", "Asha Rao", "Chen Li", "Eve Stone", "Dev Kumar"})
			})
		})

		Convey("When sorting a roster that has not been enriched", func() {
			raw := []model.StudentRecord{{Name: "b"}, {Name: "a"}, {Name: "c"}}
			got := view.SortBy(raw, view.KeyHard, view.Desc)

			Convey("Then every value is missing and order is unchanged", func() {
				So(names(got), ShouldResemble, []string{"b", "a", "c"})
			})
		})

		Convey("Then keys and directions parse", func() {
			k, err := view.ParseSortKey(" Problems_Solved ")
			So(err, ShouldBeNil)
			So(k, ShouldEqual, view.KeyProblemsSolved)

			_, err = view.ParseSortKey("rank")
			So(errors.Is(err, view.ErrUnknownSortKey), ShouldBeTrue)

			d, err := view.ParseDirection("")
			So(err, ShouldBeNil)
			So(d, ShouldEqual, view.Asc)
			So(d.Toggle(), ShouldEqual, view.Desc)
			So(d.Toggle().Toggle(), ShouldEqual, view.Asc)

			_, err = view.ParseDirection("up")
			So(errors.Is(err, view.ErrUnknownDirection), ShouldBeTrue)
		})
	})
}
