package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-races/courses"
	"github.com/aluiziolira/go-scrape-races/discovery"
	"github.com/aluiziolira/go-scrape-races/models"
	"github.com/aluiziolira/go-scrape-races/pipeline"
	"github.com/aluiziolira/go-scrape-races/report"
)

func (a *app) setCode(raw string) error {
	code, err := models.ParseRaceCode(raw)
	if err != nil {
		return err
	}
	a.cfg.Code = string(code)
	return nil
}

// defaultOutput points the output at name unless --output was given.
func (a *app) defaultOutput(cmd *cobra.Command, name string) {
	if cmd.Flags().Changed("output") {
		return
	}
	ext := ".csv"
	switch a.cfg.OutputFormat {
	case "json":
		ext = ".jsonl"
	case "sqlite":
		ext = ".db"
	}
	a.cfg.OutputFile = name + ext
}

func (a *app) loadCourses() (*courses.Table, error) {
	table, err := courses.LoadDir(a.coursesDir)
	if err != nil {
		return nil, fmt.Errorf("load courses from %s: %w", a.coursesDir, err)
	}
	return table, nil
}

func (a *app) discoveryClient() *discovery.Client {
	return discovery.NewClient(a.cfg.BaseURL,
		discovery.WithTimeout(a.cfg.Timeout),
		discovery.WithUserAgent(a.cfg.UserAgent),
	)
}

func (a *app) urlsCmd() *cobra.Command {
	var code, region string
	cmd := &cobra.Command{
		Use:   "urls FILE",
		Short: "Scrape the result URLs listed in FILE, one per line (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setCode(code); err != nil {
				return err
			}
			a.cfg.Region = region

			raws, err := readURLList(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			targets, err := models.ParseTargetURLs(raws)
			if err != nil {
				return err
			}
			return a.scrape(cmd.Context(), targets)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Racing code: flat or jumps (inferred per race when empty)")
	cmd.Flags().StringVar(&region, "region", "", "Region label recorded in output and metadata")
	return cmd
}

func (a *app) dateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "date DATES REGION",
		Short: "Scrape every race in REGION on DATES (YYYY/MM/DD or YYYY/MM/DD-YYYY/MM/DD)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dates, err := discovery.ParseDates(args[0])
			if err != nil {
				return err
			}
			region := strings.ToLower(args[1])
			table, err := a.loadCourses()
			if err != nil {
				return err
			}
			if !table.HasRegion(region) {
				return fmt.Errorf("unknown region %q", region)
			}

			a.cfg.Code = string(models.CodeUnknown)
			a.cfg.Region = region
			a.defaultOutput(cmd, filepath.Join("data", "dates", region, strings.ReplaceAll(args[0], "/", "_")))

			urls, err := a.discoveryClient().ByDate(cmd.Context(), dates, region, table)
			if err != nil {
				return err
			}
			targets, err := models.ParseTargetURLs(urls)
			if err != nil {
				return err
			}
			return a.scrape(cmd.Context(), targets)
		},
	}
}

func (a *app) courseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "course COURSE|REGION YEARS CODE",
		Short: "Scrape a course (id or name) or every course in a region for YEARS (2020 or 2019-2021)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := a.loadCourses()
			if err != nil {
				return err
			}
			tracks, folder, err := resolveTracks(table, args[0])
			if err != nil {
				return err
			}
			years, err := discovery.ParseYears(args[1])
			if err != nil {
				return err
			}
			if err := a.setCode(args[2]); err != nil {
				return err
			}
			code := models.RaceCode(a.cfg.Code)
			if code == models.CodeUnknown {
				return fmt.Errorf("racing code is required")
			}
			if table.HasRegion(args[0]) {
				a.cfg.Region = strings.ToLower(args[0])
			} else {
				a.cfg.Region = tracks[0].Region
			}
			a.defaultOutput(cmd, filepath.Join("data", folder, string(code), args[1]))

			urls, err := a.discoveryClient().ByCourse(cmd.Context(), tracks, years, code)
			if err != nil {
				return err
			}
			targets, err := models.ParseTargetURLs(urls)
			if err != nil {
				return err
			}
			return a.scrape(cmd.Context(), targets)
		},
	}
}

// resolveTracks maps a region code, course id or course name to courses.
func resolveTracks(table *courses.Table, arg string) ([]courses.Course, string, error) {
	if table.HasRegion(arg) {
		list := table.RegionCourses(arg)
		if len(list) == 0 {
			return nil, "", fmt.Errorf("region %q has no courses", arg)
		}
		return list, strings.ToLower(arg), nil
	}
	if c, ok := table.Course(arg); ok {
		return []courses.Course{c}, c.Slug(), nil
	}
	hits := table.Search(arg, 1, 0.9)
	if len(hits) == 0 {
		return nil, "", fmt.Errorf("unknown course or region %q; try: racescrape courses %s", arg, arg)
	}
	return []courses.Course{hits[0].Course}, hits[0].Slug(), nil
}

func (a *app) retryCmd() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "retry FAILURE_LOG",
		Short: "Re-scrape the URLs recorded in a failure log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := pipeline.ReadFailureLog(args[0])
			if err != nil {
				return err
			}
			if err := a.setCode(code); err != nil {
				return err
			}
			if len(log.Failures) > 0 {
				a.cfg.Region = log.Failures[0].Country
			}
			stem := strings.TrimSuffix(args[0], filepath.Ext(args[0]))
			a.defaultOutput(cmd, strings.TrimSuffix(stem, "_failures")+"_retry")

			targets, err := models.ParseTargetURLs(log.URLs())
			if err != nil {
				return err
			}
			return a.scrape(cmd.Context(), targets)
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Racing code: flat or jumps (inferred per race when empty)")
	return cmd
}

func (a *app) coursesCmd() *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "courses [SEARCH]",
		Short: "List regions, a region's courses, or courses matching SEARCH",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := a.loadCourses()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case len(args) == 1:
				report.PrintCourses(out, table.Search(args[0], 10, 0.7))
			case region != "":
				var matches []courses.Match
				for _, c := range table.RegionCourses(region) {
					matches = append(matches, courses.Match{Course: c})
				}
				report.PrintCourses(out, matches)
			default:
				report.PrintRegions(out, table)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "List the courses of one region")
	return cmd
}

// readURLList reads one URL per line, skipping blanks, comments and repeats.
func readURLList(path string, stdin io.Reader) ([]string, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open url list: %w", err)
		}
		defer f.Close()
		r = f
	}

	seen := map[string]struct{}{}
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return out, nil
}
