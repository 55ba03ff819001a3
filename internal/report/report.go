// Package report writes the per-run output files: daily date/epi-week/
// popsize traces, vital records, per-condition daily counts, the joined
// out.csv, network snapshots, and end-of-run group summaries.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/episim/episim/internal/sim"
)

// Reporter implements sim.Reporter, writing everything under one run
// directory.
type Reporter struct {
	dir string

	date    *os.File
	epiWeek *os.File
	popsize *os.File
	births  *os.File
	deaths  *os.File

	out      *csv.Writer
	fred     *csv.Writer
	condCSV  map[string]*csv.Writer
	closers  []io.Closer
	flushers []*csv.Writer
}

// New creates a reporter for the given run directory. Files open on
// BeginRun.
func New(dir string) *Reporter {
	return &Reporter{dir: dir, condCSV: make(map[string]*csv.Writer)}
}

// Dir returns the run directory.
func (r *Reporter) Dir() string { return r.dir }

// BeginRun creates the run directory and opens every output file.
func (r *Reporter) BeginRun(s *sim.Simulation) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	var err error
	if r.date, err = r.create("Date.txt"); err != nil {
		return err
	}
	if r.epiWeek, err = r.create("EpiWeek.txt"); err != nil {
		return err
	}
	if r.popsize, err = r.create("Popsize.txt"); err != nil {
		return err
	}
	if r.births, err = r.create("births.txt"); err != nil {
		return err
	}
	if r.deaths, err = r.create("deaths.txt"); err != nil {
		return err
	}

	if r.out, err = r.createCSV("out.csv"); err != nil {
		return err
	}
	if r.fred, err = r.createCSV("FRED.csv"); err != nil {
		return err
	}
	joined := []string{"Day", "Date", "EpiWeek", "Popsize"}
	for _, cond := range s.Model.Conditions {
		nh := cond.History
		header := []string{"Day", "Date", "EpiWeek"}
		for state := 0; state < nh.StateCount(); state++ {
			name := nh.StateName(state)
			header = append(header, "new"+name, "cur"+name, "tot"+name)
			joined = append(joined,
				cond.Name+".new"+name, cond.Name+".cur"+name, cond.Name+".tot"+name)
		}
		w, err := r.createCSV(cond.Name + ".csv")
		if err != nil {
			return err
		}
		if err := w.Write(header); err != nil {
			return fmt.Errorf("report: %w", err)
		}
		r.condCSV[cond.Name] = w
	}
	if err := r.out.Write(joined); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := r.fred.Write(joined); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}

// EndDay appends the day's rows to every daily file.
func (r *Reporter) EndDay(s *sim.Simulation, day int) error {
	date := s.Calendar.DateOf(day)
	dateStr := date.String()
	epiWeek := fmt.Sprintf("%d.%02d", date.EpiYear, date.EpiWeek)
	popsize := s.Model.PopulationSize()

	fmt.Fprintf(r.date, "%d %s\n", day, dateStr)
	fmt.Fprintf(r.epiWeek, "%d %s\n", day, epiWeek)
	fmt.Fprintf(r.popsize, "%d %d\n", day, popsize)

	for _, rec := range s.Demographics.DrainBirths() {
		fmt.Fprintf(r.births, "day %d person %d age %d sex %c\n", rec.Day, rec.PersonID, rec.Age, rec.Sex)
	}
	for _, rec := range s.Demographics.DrainDeaths() {
		fmt.Fprintf(r.deaths, "day %d person %d age %d sex %c\n", rec.Day, rec.PersonID, rec.Age, rec.Sex)
	}

	joined := []string{strconv.Itoa(day), dateStr, epiWeek, strconv.Itoa(popsize)}
	for _, cond := range s.Model.Conditions {
		epidemic := cond.Epidemic()
		row := []string{strconv.Itoa(day), dateStr, epiWeek}
		for state := 0; state < cond.History.StateCount(); state++ {
			cells := []string{
				strconv.Itoa(epidemic.DailyIncidence(state)),
				strconv.Itoa(epidemic.CurrentCount(state)),
				strconv.Itoa(epidemic.TotalCount(state)),
			}
			row = append(row, cells...)
			joined = append(joined, cells...)
		}
		if err := r.condCSV[cond.Name].Write(row); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	if err := r.out.Write(joined); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := r.fred.Write(joined); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	if date.Month == 12 && date.DayOfMonth == 31 {
		if err := r.writeAges(s, date.Year); err != nil {
			return err
		}
	}
	if err := r.writeNetworkSnapshots(s, day); err != nil {
		return err
	}
	return nil
}

// EndRun writes the per-group summaries, then flushes and closes
// everything.
func (r *Reporter) EndRun(s *sim.Simulation) error {
	if err := r.writeGroupSummaries(s); err != nil {
		return err
	}
	for _, w := range r.flushers {
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	for _, c := range r.closers {
		if err := c.Close(); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	r.closers = nil
	r.flushers = nil
	return nil
}

// writeAges writes the year-end age histogram of the living population.
func (r *Reporter) writeAges(s *sim.Simulation, year int) error {
	f, err := os.Create(filepath.Join(r.dir, fmt.Sprintf("ages-%d.txt", year)))
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer f.Close()

	maxAge := 0
	counts := make(map[int]int)
	for _, p := range s.Model.People {
		if p.IsDeceased() {
			continue
		}
		counts[p.Age]++
		if p.Age > maxAge {
			maxAge = p.Age
		}
	}
	for age := 0; age <= maxAge; age++ {
		fmt.Fprintf(f, "%d %d\n", age, counts[age])
	}
	return nil
}

// writeNetworkSnapshots dumps edge-list and vna forms of every network
// whose type asks for a print interval.
func (r *Reporter) writeNetworkSnapshots(s *sim.Simulation, day int) error {
	for _, net := range s.Model.Networks {
		interval := net.Type.PrintInterval
		if interval <= 0 || day%interval != 0 {
			continue
		}
		name := fmt.Sprintf("%s-%d", net.Label, day)
		if err := r.writeSnapshot(name+".txt", net.WriteEdgeList); err != nil {
			return err
		}
		if err := r.writeSnapshot(name+".vna", net.WriteVNA); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reporter) writeSnapshot(name string, write func(io.Writer) error) error {
	f, err := os.Create(filepath.Join(r.dir, name))
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	werr := write(f)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		return fmt.Errorf("report: %w", werr)
	}
	return nil
}

// writeGroupSummaries writes groups-<condition>.csv: one row per place
// with its final size and first/last transmissible-day bookkeeping.
func (r *Reporter) writeGroupSummaries(s *sim.Simulation) error {
	for _, cond := range s.Model.Conditions {
		f, err := os.Create(filepath.Join(r.dir, fmt.Sprintf("groups-%s.csv", cond.Name)))
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		w := csv.NewWriter(f)
		header := []string{"Label", "Type", "Size", "FirstDay", "LastDay", "FirstDayTransmissible", "FirstDaySusceptible"}
		if err := w.Write(header); err != nil {
			f.Close()
			return fmt.Errorf("report: %w", err)
		}
		for _, pl := range s.Model.Places {
			trans, susc := pl.FirstDayCounts(cond.ID)
			row := []string{
				pl.Label,
				pl.Type.Name,
				strconv.Itoa(pl.Size()),
				strconv.Itoa(pl.FirstTransmissibleDay(cond.ID)),
				strconv.Itoa(pl.LastTransmissibleDay(cond.ID)),
				strconv.Itoa(trans),
				strconv.Itoa(susc),
			}
			if err := w.Write(row); err != nil {
				f.Close()
				return fmt.Errorf("report: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return fmt.Errorf("report: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("report: %w", err)
		}
	}
	return nil
}

func (r *Reporter) create(name string) (*os.File, error) {
	f, err := os.Create(filepath.Join(r.dir, name))
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}
	r.closers = append(r.closers, f)
	return f, nil
}

func (r *Reporter) createCSV(name string) (*csv.Writer, error) {
	f, err := r.create(name)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	r.flushers = append(r.flushers, w)
	return w, nil
}
