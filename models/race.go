// Package models defines data structures for the scraper.
package models

// RaceRecord holds the header-level attributes of one race.
type RaceRecord struct {
	RaceID       string  `json:"race_id"`
	CourseID     string  `json:"course_id"`
	Course       string  `json:"course"`
	Date         string  `json:"date"`
	Region       string  `json:"region"`
	Off          string  `json:"off"`
	Name         string  `json:"race_name"`
	Type         string  `json:"type"`
	Class        string  `json:"class"`
	Pattern      string  `json:"pattern"`
	RatingBand   string  `json:"rating_band"`
	AgeBand      string  `json:"age_band"`
	SexRest      string  `json:"sex_rest"`
	Distance     string  `json:"dist"`
	DistFurlongs float64 `json:"dist_f"`
	DistYards    int     `json:"dist_y"`
	DistMetres   int     `json:"dist_m"`
	Going        string  `json:"going"`
	Ran          int     `json:"ran"`
	WinningTime  float64 `json:"winning_time"`
}

// RunnerRow holds one horse's result within a race.
type RunnerRow struct {
	Num       string `json:"num"`
	Pos       string `json:"pos"`
	Draw      string `json:"draw"`
	BtnRaw    string `json:"btn_raw"`
	OvrBtnRaw string `json:"ovr_btn_raw"`
	Btn       string `json:"btn"`
	OvrBtn    string `json:"ovr_btn"`
	Horse     string `json:"horse"`
	Nat       string `json:"nat"`
	HorseID   string `json:"horse_id"`
	SP        string `json:"sp"`
	Dec       string `json:"dec"`
	Age       string `json:"age"`
	Sex       string `json:"sex"`
	Wgt       string `json:"wgt"`
	Lbs       int    `json:"lbs"`
	HG        string `json:"hg"`
	Time      string `json:"time"`
	Secs      string `json:"secs"`
	Jockey    string `json:"jockey"`
	JockeyID  string `json:"jockey_id"`
	Trainer   string `json:"trainer"`
	TrainerID string `json:"trainer_id"`
	Owner     string `json:"owner"`
	OwnerID   string `json:"owner_id"`
	OR        string `json:"or"`
	RPR       string `json:"rpr"`
	TS        string `json:"ts"`
	Prize     string `json:"prize"`
	Sire      string `json:"sire"`
	Dam       string `json:"dam"`
	Damsire   string `json:"damsire"`
	SilkURL   string `json:"silk_url"`
	Comment   string `json:"comment"`
}

// Row is one flattened output record: race-level fields repeated per runner.
type Row struct {
	Race   *RaceRecord
	Runner *RunnerRow
}
