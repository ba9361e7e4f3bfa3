package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"scancore/pkg/domain"
)

// UnitEnv is the environment a unit filter expression evaluates against.
// Field tags are the names visible inside the expression, so a query reads
// like `kind == "spine" && frames > 4 && has_analysis`.
type UnitEnv struct {
	Name        string            `expr:"name"`
	Kind        string            `expr:"kind"`
	Cell        string            `expr:"cell"`
	Field       string            `expr:"field"`
	InSecondary bool              `expr:"in_secondary"`
	Frames      int               `expr:"frames"`
	Protocols   []string          `expr:"protocols"`
	Landmark    string            `expr:"landmark"`
	Location    string            `expr:"location"`
	Descriptors map[string]string `expr:"descriptors"`
	HasAnalysis bool              `expr:"has_analysis"`
}

// UnitFilter is a compiled unit query.
type UnitFilter struct {
	source  string
	program *vm.Program
}

// CompileUnitFilter compiles a boolean expression over UnitEnv fields.
func CompileUnitFilter(src string) (*UnitFilter, error) {
	program, err := expr.Compile(src, expr.Env(UnitEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile unit filter %q: %w", src, err)
	}
	return &UnitFilter{source: src, program: program}, nil
}

// Source returns the original expression text.
func (f *UnitFilter) Source() string { return f.source }

// Match evaluates the filter against a single unit of the dataset.
func (f *UnitFilter) Match(d *domain.Dataset, u domain.AnalysisUnit) (bool, error) {
	env := unitToEnv(d, u)
	result, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate unit filter %q: %w", f.source, err)
	}
	b, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("unit filter %q did not yield a boolean", f.source)
	}
	return b, nil
}

// FilterUnits returns the units of the dataset matched by the filter, whole
// unit included, in stable name order.
func (f *UnitFilter) FilterUnits(d *domain.Dataset) ([]domain.AnalysisUnit, error) {
	units := make([]domain.AnalysisUnit, 0, len(d.Units)+1)
	units = append(units, d.Whole)
	units = append(units, d.Units...)
	sort.SliceStable(units, func(i, j int) bool { return units[i].Name < units[j].Name })

	matched := make([]domain.AnalysisUnit, 0, len(units))
	for _, u := range units {
		ok, err := f.Match(d, u)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, u.Clone())
		}
	}
	return matched, nil
}

func unitToEnv(d *domain.Dataset, u domain.AnalysisUnit) UnitEnv {
	env := UnitEnv{
		Name:        u.Name,
		Kind:        string(u.Kind),
		Cell:        u.Cell,
		Field:       u.Field,
		InSecondary: u.InSecondary,
		Frames:      len(d.UnitFrames(u)),
		Descriptors: u.Descriptors,
		HasAnalysis: d.HasAnalysis(u.Name),
	}
	if env.Descriptors == nil {
		env.Descriptors = map[string]string{}
	}
	for _, id := range u.Protocols {
		if p, ok := d.ProtocolByID(id); ok {
			env.Protocols = append(env.Protocols, p.Name)
		}
	}
	sort.Strings(env.Protocols)
	if u.Landmark != nil {
		if lm, ok := d.LandmarkByID(*u.Landmark); ok {
			env.Landmark = lm.Name
			env.Location = string(lm.Location)
		}
	}
	return env
}

// QueryUnits loads a dataset and applies a unit filter expression to it.
func (s *Service) QueryUnits(ctx context.Context, name, filterSrc string) ([]AnalysisUnit, error) {
	filter, err := CompileUnitFilter(filterSrc)
	if err != nil {
		return nil, err
	}
	var units []AnalysisUnit
	err = s.observe(ctx, "query_units", func(ctx context.Context) error {
		ds, err := s.load(ctx, name)
		if err != nil {
			return err
		}
		units, err = filter.FilterUnits(ds)
		return err
	})
	return units, err
}
