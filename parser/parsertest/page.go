// Package parsertest builds result pages shaped like the publisher's markup for
// use in tests.
package parsertest

import (
	"bytes"
	"html/template"
)

// Runner is one row of the result table.
type Runner struct {
	Pos       string
	Draw      string
	Num       string
	Horse     string
	HorseID   string
	Nat       string
	SP        string
	Jockey    string
	JockeyID  string
	Trainer   string
	TrainerID string
	OwnerSlug string
	OwnerID   string
	Silk      string
	Age       string
	St        string
	Lb        string
	Headgear  string
	OR        string
	TS        string
	RPR       string
	// Lengths are the margin spans: one part, two parts, or none.
	Lengths   []string
	Prize     string
	Sex       string
	Sire      string
	Dam       string
	DamNat    string
	Damsire   string
	Comment   string
}

// Race describes the page to render.
type Race struct {
	Off          string
	Title        string
	Class        string
	Band         string
	Distance     string
	FullDistance string
	Going        string
	Obstacles    string
	WinningTime  string
	TotalPrize   string
	Ran          int
	OmitRan      bool
	Notice       string
	Runners      []Runner
}

// Flat returns a three-runner flat handicap on good to soft ground.
func Flat() Race {
	return Race{
		Off:          "2:25",
		Title:        "Betway Handicap (Class 4)",
		Class:        "(Class 4)",
		Band:         "(0-85, 3yo+)",
		Distance:     "1m2½f",
		FullDistance: "(1m2f110yds)",
		Going:        "Good To Soft",
		WinningTime:  "2m 10.50s (slow by 3.10s)",
		TotalPrize:   "£10,000",
		Ran:          3,
		Runners: []Runner{
			{
				Pos: "1", Draw: "3", Num: "5", Horse: "Sea Legend", HorseID: "1001", Nat: "(IRE)",
				SP: "9/2F", Jockey: "Tom Marquand", JockeyID: "201", Trainer: "William Haggas", TrainerID: "301",
				OwnerSlug: "sheikh-ahmed-al-maktoum", OwnerID: "401", Silk: "https://images.example/silks/401.png",
				Age: "4", St: "9", Lb: "7", Headgear: "p", OR: "85", TS: "70", RPR: "90",
				Lengths: []string{""}, Prize: "£5,400",
				Sex: "b g", Sire: "Sea The Stars (IRE)", Dam: "Legend", DamNat: "(GB)", Damsire: "Dansili",
				Comment: "Tracked leaders, led final furlong, kept on",
			},
			{
				Pos: "2", Draw: "1", Num: "2", Horse: "Quiet Storm", HorseID: "1002", Nat: "",
				SP: "Evs", Jockey: "Hollie Doyle", JockeyID: "202", Trainer: "Archie Watson", TrainerID: "302",
				OwnerSlug: "clipper-logistics", OwnerID: "402", Silk: "https://images.example/silks/402.png",
				Age: "5", St: "9", Lb: "2", OR: "80", TS: "66", RPR: "86",
				Lengths: []string{"nk"}, Prize: "£1,800",
				Sex: "ch m", Sire: "Kingman (GB)", Dam: "Storm Lady", DamNat: "(FR)", Damsire: "Galileo (IRE)",
				Comment: "Held up, ran on inside final furlong",
			},
			{
				Pos: "3", Draw: "2", Num: "1", Horse: "Far Horizon", HorseID: "1003", Nat: "(FR)",
				SP: "10/1", Jockey: "Ryan Moore", JockeyID: "203", Trainer: "Aidan O'Brien", TrainerID: "303",
				OwnerSlug: "derrick-smith", OwnerID: "403", Silk: "https://images.example/silks/403.png",
				Age: "4", St: "8", Lb: "12", OR: "78", TS: "–", RPR: "81",
				Lengths: []string{"1½", "[1¾]"},
				Sex: "b c", Sire: "Frankel (GB)", Dam: "Horizon", DamNat: "(USA)", Damsire: "Damsire Unregistered",
				Comment: "Prominent, weakened final 100yds",
			},
		},
	}
}

// Page renders r as a result page body.
func Page(r Race) []byte {
	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, r); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html><head><title>Results</title></head><body>
<div class="rp-raceTimeCourseName">
  <span class="rp-raceTimeCourseName__time" data-test-selector="text-raceTime">{{.Off}}</span>
  <h2 class="rp-raceTimeCourseName__title">{{.Title}}</h2>
  {{if .Class}}<span class="rp-raceTimeCourseName_class">{{.Class}}</span>{{end}}
  {{if .Band}}<span class="rp-raceTimeCourseName_ratingBandAndAgesAllowed">{{.Band}}</span>{{end}}
  <span class="rp-raceTimeCourseName_distance" data-test-selector="block-distanceInd">{{.Distance}}</span>
  {{if .FullDistance}}<span class="rp-raceTimeCourseName_distanceFull" data-test-selector="block-fullDistanceInd">{{.FullDistance}}</span>{{end}}
  <span class="rp-raceTimeCourseName_condition">{{.Going}}</span>
  {{if .Obstacles}}<span class="rp-raceTimeCourseName_hurdles">{{.Obstacles}}</span>{{end}}
  <div data-test-selector="text-prizeMoney">{{.TotalPrize}}</div>
</div>
{{if .Notice}}<p class="rp-raceTimeCourseName__info">{{.Notice}}</p>{{end}}
<table class="rp-horseTable__table"><tbody>
{{range .Runners}}
<tr class="rp-horseTable__mainRow">
  <td class="rp-horseTable__pos">
    <span class="rp-horseTable__pos__number" data-test-selector="text-horsePosition">{{.Pos}}{{if .Draw}}<sup class="rp-horseTable__pos__draw">({{.Draw}})</sup>{{end}}</span>
    {{if .Lengths}}<span class="rp-horseTable__pos__length">{{range .Lengths}}<span>{{.}}</span>{{end}}</span>{{end}}
  </td>
  <td class="rp-horseTable__prize">{{if .Prize}}<div data-test-selector="text-prizeMoney">{{.Prize}}</div>{{end}}</td>
  <td class="rp-horseTable__horse">
    <span class="rp-horseTable__saddleClothNo">{{.Num}}.</span>
    <a class="rp-horseTable__horse__name" data-test-selector="link-horseName" href="/profile/horse/{{.HorseID}}/{{.Horse}}">{{.Horse}}</a>
    <span class="rp-horseTable__horse__country">{{.Nat}}</span>
    <span class="rp-horseTable__horse__price">{{.SP}}</span>
    <a data-test-selector="link-jockeyName" href="/profile/jockey/{{.JockeyID}}/jockey">{{.Jockey}}</a>
    <a data-test-selector="link-trainerName" href="/profile/trainer/{{.TrainerID}}/trainer">{{.Trainer}}</a>
    <a data-test-selector="link-silk" href="/profile/owner/{{.OwnerID}}/{{.OwnerSlug}}"><img src="{{.Silk}}" alt=""></a>
  </td>
  <td data-test-selector="horse-age">{{.Age}}</td>
  <td class="rp-horseTable__wgt"><span data-ending="st">{{.St}}</span>-<span data-ending="lb">{{.Lb}}</span>{{if .Headgear}}<span class="rp-horseTable__headGear">{{.Headgear}}</span>{{end}}</td>
  <td data-ending="OR">{{.OR}}</td>
  <td data-ending="TS">{{.TS}}</td>
  <td data-ending="RPR">{{.RPR}}</td>
</tr>
<tr class="rp-horseTable__commentRow"><td colspan="8">{{.Comment}}</td></tr>
<tr data-test-selector="block-pedigreeInfoFullResults"><td>{{.Sex}} <a href="/profile/horse/1/sire">{{.Sire}}</a> - <a href="/profile/horse/2/dam">{{.Dam}}<span>{{.DamNat}}</span></a> <a href="/profile/horse/3/damsire">({{.Damsire}})</a></td></tr>
{{end}}
</tbody></table>
<div class="rp-raceInfo"><ul>
  <li>{{if not .OmitRan}}<span class="rp-raceInfo__value rp-raceInfo__value_black">{{.Ran}} ran</span>{{end}}
    Winning time: <span class="rp-raceInfo__value">{{.WinningTime}}</span>
    Total SP: <span class="rp-raceInfo__value">115%</span></li>
</ul></div>
</body></html>
`))
