package pipeline

import (
	"strconv"

	"github.com/aluiziolira/go-scrape-races/config"
	"github.com/aluiziolira/go-scrape-races/models"
)

// Column is one output field and how to read it from a row.
type Column struct {
	Name  string
	Value func(models.Row) string
}

// Schema is the fixed, ordered column set of a run's output. Downstream loaders
// depend on column position as well as name.
type Schema struct {
	columns []Column
}

func race(name string, get func(*models.RaceRecord) string) Column {
	return Column{Name: name, Value: func(r models.Row) string { return get(r.Race) }}
}

func runner(name string, get func(*models.RunnerRow) string) Column {
	return Column{Name: name, Value: func(r models.Row) string { return get(r.Runner) }}
}

// NewSchema resolves the optional fields into a column list once.
func NewSchema(f config.Fields) *Schema {
	var cols []Column
	add := func(enabled bool, c ...Column) {
		if enabled {
			cols = append(cols, c...)
		}
	}

	add(true, race("date", func(r *models.RaceRecord) string { return r.Date }))
	add(f.Region, race("region", func(r *models.RaceRecord) string { return r.Region }))
	add(true,
		race("course_id", func(r *models.RaceRecord) string { return r.CourseID }),
		race("course", func(r *models.RaceRecord) string { return r.Course }),
		race("race_id", func(r *models.RaceRecord) string { return r.RaceID }),
		race("off", func(r *models.RaceRecord) string { return r.Off }),
		race("race_name", func(r *models.RaceRecord) string { return r.Name }),
		race("type", func(r *models.RaceRecord) string { return r.Type }),
		race("class", func(r *models.RaceRecord) string { return r.Class }),
		race("pattern", func(r *models.RaceRecord) string { return r.Pattern }),
		race("rating_band", func(r *models.RaceRecord) string { return r.RatingBand }),
		race("age_band", func(r *models.RaceRecord) string { return r.AgeBand }),
		race("sex_rest", func(r *models.RaceRecord) string { return r.SexRest }),
		race("dist", func(r *models.RaceRecord) string { return r.Distance }),
		race("dist_f", func(r *models.RaceRecord) string { return strconv.FormatFloat(r.DistFurlongs, 'f', -1, 64) }),
		race("dist_y", func(r *models.RaceRecord) string { return strconv.Itoa(r.DistYards) }),
		race("dist_m", func(r *models.RaceRecord) string { return strconv.Itoa(r.DistMetres) }),
		race("going", func(r *models.RaceRecord) string { return r.Going }),
		race("ran", func(r *models.RaceRecord) string { return strconv.Itoa(r.Ran) }),
	)
	add(f.WinningTime, race("winning_time", func(r *models.RaceRecord) string {
		if r.WinningTime == 0 {
			return ""
		}
		return strconv.FormatFloat(r.WinningTime, 'f', 2, 64)
	}))
	add(true,
		runner("num", func(r *models.RunnerRow) string { return r.Num }),
		runner("pos", func(r *models.RunnerRow) string { return r.Pos }),
		runner("draw", func(r *models.RunnerRow) string { return r.Draw }),
	)
	add(f.RawBeaten,
		runner("ovr_btn_raw", func(r *models.RunnerRow) string { return r.OvrBtnRaw }),
		runner("btn_raw", func(r *models.RunnerRow) string { return r.BtnRaw }),
	)
	add(true,
		runner("ovr_btn", func(r *models.RunnerRow) string { return r.OvrBtn }),
		runner("btn", func(r *models.RunnerRow) string { return r.Btn }),
		runner("horse", func(r *models.RunnerRow) string { return r.Horse }),
	)
	add(f.Nat, runner("nat", func(r *models.RunnerRow) string { return r.Nat }))
	add(f.IDs, runner("horse_id", func(r *models.RunnerRow) string { return r.HorseID }))
	add(true,
		runner("sp", func(r *models.RunnerRow) string { return r.SP }),
		runner("dec", func(r *models.RunnerRow) string { return r.Dec }),
		runner("age", func(r *models.RunnerRow) string { return r.Age }),
		runner("sex", func(r *models.RunnerRow) string { return r.Sex }),
	)
	add(f.Weight, runner("wgt", func(r *models.RunnerRow) string { return r.Wgt }))
	add(true, runner("lbs", func(r *models.RunnerRow) string { return strconv.Itoa(r.Lbs) }))
	add(f.Headgear, runner("hg", func(r *models.RunnerRow) string { return r.HG }))
	add(true,
		runner("time", func(r *models.RunnerRow) string { return r.Time }),
		runner("secs", func(r *models.RunnerRow) string { return r.Secs }),
		runner("jockey", func(r *models.RunnerRow) string { return r.Jockey }),
	)
	add(f.IDs, runner("jockey_id", func(r *models.RunnerRow) string { return r.JockeyID }))
	add(true, runner("trainer", func(r *models.RunnerRow) string { return r.Trainer }))
	add(f.IDs, runner("trainer_id", func(r *models.RunnerRow) string { return r.TrainerID }))
	add(f.Owner, runner("owner", func(r *models.RunnerRow) string { return r.Owner }))
	add(f.IDs, runner("owner_id", func(r *models.RunnerRow) string { return r.OwnerID }))
	add(true,
		runner("or", func(r *models.RunnerRow) string { return r.OR }),
		runner("rpr", func(r *models.RunnerRow) string { return r.RPR }),
		runner("ts", func(r *models.RunnerRow) string { return r.TS }),
		runner("prize", func(r *models.RunnerRow) string { return r.Prize }),
	)
	add(f.Pedigree,
		runner("sire", func(r *models.RunnerRow) string { return r.Sire }),
		runner("dam", func(r *models.RunnerRow) string { return r.Dam }),
		runner("damsire", func(r *models.RunnerRow) string { return r.Damsire }),
	)
	add(f.SilkURL, runner("silk_url", func(r *models.RunnerRow) string { return r.SilkURL }))
	add(f.Comment, runner("comment", func(r *models.RunnerRow) string { return r.Comment }))

	return &Schema{columns: cols}
}

// Names returns the header row.
func (s *Schema) Names() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Name
	}
	return out
}

// Record flattens row into schema order.
func (s *Schema) Record(row models.Row) []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Value(row)
	}
	return out
}

// Len is the number of columns.
func (s *Schema) Len() int {
	return len(s.columns)
}
