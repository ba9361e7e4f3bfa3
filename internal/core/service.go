package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"scancore/internal/blob"
	"scancore/pkg/domain"
)

// Service exposes higher-level transactional operations over stored
// datasets. Every operation loads a fresh copy from the persistent store,
// mutates it through the domain's validate/build/commit discipline,
// evaluates the rules engine against the candidate, and persists only when
// nothing blocks.
type Service struct {
	store    PersistentStore
	engine   *RulesEngine
	payloads blob.Store
	opts     serviceOptions
}

// NewService constructs a service backed by the supplied store and rules
// engine.
func NewService(store PersistentStore, engine *RulesEngine, options ...Option) *Service {
	opts := defaultServiceOptions()
	for _, o := range options {
		o(&opts)
	}
	if engine == nil {
		engine = NewRulesEngine()
	}
	return &Service{store: store, engine: engine, opts: opts}
}

// Store returns the underlying persistent store.
func (s *Service) Store() PersistentStore { return s.store }

// Engine returns the rules engine; callers register additional rules here.
func (s *Service) Engine() *RulesEngine { return s.engine }

// SetPayloadStore attaches a payload archive backend used by
// ArchiveTrackPayloads and RestoreTrackPayloads.
func (s *Service) SetPayloadStore(store blob.Store) { s.payloads = store }

// observe wraps one operation with tracing, metrics and logging.
func (s *Service) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := s.opts.clock()
	var span TraceSpan
	if s.opts.tracer != nil {
		ctx, span = s.opts.tracer.Start(ctx, operation)
	}
	err := fn(ctx)
	duration := s.opts.clock().Sub(start)
	if span != nil {
		span.End(err)
	}
	if s.opts.metrics != nil {
		s.opts.metrics.Observe(ctx, operation, err == nil, duration)
	}
	if err != nil {
		s.opts.logger.Error("operation failed", "operation", operation, "error", err, "duration", duration)
	} else {
		s.opts.logger.Debug("operation complete", "operation", operation, "duration", duration)
	}
	return err
}

// evaluateAndSave runs the rules engine on a candidate dataset and persists
// it unless a blocking violation is present. Warning and log level
// violations are reported but do not prevent the commit.
func (s *Service) evaluateAndSave(ctx context.Context, d *Dataset) (Result, error) {
	res, err := s.engine.Evaluate(ctx, d)
	if err != nil {
		return Result{}, err
	}
	if res.HasBlocking() {
		return res, RuleViolationError{Result: res}
	}
	for _, v := range res.Warnings() {
		s.opts.logger.Warn("rule violation", "rule", v.Rule, "severity", v.Severity, "message", v.Message)
	}
	if err := s.store.SaveDataset(ctx, d); err != nil {
		return res, err
	}
	return res, nil
}

func (s *Service) load(ctx context.Context, name string) (*Dataset, error) {
	d, ok, err := s.store.LoadDataset(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound{Entity: EntityDataset, Name: name}
	}
	return d, nil
}

// CreateDataset validates and persists a new dataset.
func (s *Service) CreateDataset(ctx context.Context, d *Dataset) (Result, error) {
	var res Result
	err := s.observe(ctx, "create_dataset", func(ctx context.Context) error {
		if _, ok, err := s.store.LoadDataset(ctx, d.Name); err != nil {
			return err
		} else if ok {
			return domain.ErrNameCollision{Entity: EntityDataset, Name: d.Name}
		}
		if err := d.Validate(); err != nil {
			return err
		}
		var err error
		res, err = s.evaluateAndSave(ctx, d)
		return err
	})
	return res, err
}

// GetDataset loads a stored dataset by name.
func (s *Service) GetDataset(ctx context.Context, name string) (*Dataset, error) {
	var d *Dataset
	err := s.observe(ctx, "get_dataset", func(ctx context.Context) error {
		var err error
		d, err = s.load(ctx, name)
		return err
	})
	return d, err
}

// ListDatasets returns stored dataset names.
func (s *Service) ListDatasets(ctx context.Context) ([]string, error) {
	var names []string
	err := s.observe(ctx, "list_datasets", func(ctx context.Context) error {
		var err error
		names, err = s.store.ListDatasets(ctx)
		return err
	})
	return names, err
}

// DeleteDataset removes a stored dataset.
func (s *Service) DeleteDataset(ctx context.Context, name string) error {
	return s.observe(ctx, "delete_dataset", func(ctx context.Context) error {
		existed, err := s.store.DeleteDataset(ctx, name)
		if err != nil {
			return err
		}
		if !existed {
			return domain.ErrNotFound{Entity: EntityDataset, Name: name}
		}
		return nil
	})
}

// UpdateDataset loads a dataset, applies mutate, evaluates rules and
// persists the outcome. The stored copy is untouched when any step fails.
func (s *Service) UpdateDataset(ctx context.Context, name string, mutate func(*Dataset) error) (*Dataset, Result, error) {
	return s.update(ctx, "update_dataset", name, mutate)
}

func (s *Service) update(ctx context.Context, operation, name string, mutate func(*Dataset) error) (*Dataset, Result, error) {
	var (
		d   *Dataset
		res Result
	)
	err := s.observe(ctx, operation, func(ctx context.Context) error {
		var err error
		d, err = s.load(ctx, name)
		if err != nil {
			return err
		}
		if err := mutate(d); err != nil {
			return err
		}
		res, err = s.evaluateAndSave(ctx, d)
		return err
	})
	if err != nil {
		return nil, res, err
	}
	return d, res, nil
}

// RemoveFrame drops one frame from the named dataset.
func (s *Service) RemoveFrame(ctx context.Context, name string, index int) (*Dataset, Result, error) {
	return s.update(ctx, "remove_frame", name, func(d *Dataset) error {
		return d.RemoveFrame(index)
	})
}

// AddProtocol registers a protocol with the named dataset.
func (s *Service) AddProtocol(ctx context.Context, name string, p Protocol) (*Dataset, Result, error) {
	return s.update(ctx, "add_protocol", name, func(d *Dataset) error {
		return d.AddProtocol(p)
	})
}

// RemoveProtocol deletes a protocol from the named dataset.
func (s *Service) RemoveProtocol(ctx context.Context, name, protocol string) (*Dataset, Result, error) {
	return s.update(ctx, "remove_protocol", name, func(d *Dataset) error {
		return d.RemoveProtocol(protocol)
	})
}

// AddLandmark registers a landmark with the named dataset.
func (s *Service) AddLandmark(ctx context.Context, name string, l Landmark) (*Dataset, Result, error) {
	return s.update(ctx, "add_landmark", name, func(d *Dataset) error {
		_, err := d.AddLandmark(l)
		return err
	})
}

// RemoveLandmark deletes a landmark, cascading to its analysis unit.
func (s *Service) RemoveLandmark(ctx context.Context, name string, loc domain.StorageLocation, landmark string) (*Dataset, Result, error) {
	return s.update(ctx, "remove_landmark", name, func(d *Dataset) error {
		return d.RemoveLandmark(loc, landmark)
	})
}

// AddUnit registers a landmark-based analysis unit.
func (s *Service) AddUnit(ctx context.Context, name string, u AnalysisUnit) (*Dataset, Result, error) {
	return s.update(ctx, "add_unit", name, func(d *Dataset) error {
		return d.AddUnit(u)
	})
}

// RemoveUnit deletes an analysis unit, cascading to its landmark.
func (s *Service) RemoveUnit(ctx context.Context, name, unit string) (*Dataset, Result, error) {
	return s.update(ctx, "remove_unit", name, func(d *Dataset) error {
		return d.RemoveUnit(unit)
	})
}

// RenameUnit renames an analysis unit together with its analysed entries.
func (s *Service) RenameUnit(ctx context.Context, name, oldName, newName string) (*Dataset, Result, error) {
	return s.update(ctx, "rename_unit", name, func(d *Dataset) error {
		return d.RenameUnit(oldName, newName)
	})
}

// AdoptProtocols copies protocols from the source dataset into the target.
func (s *Service) AdoptProtocols(ctx context.Context, target, source string) (*Dataset, Result, error) {
	var src *Dataset
	if err := s.observe(ctx, "load_adoption_source", func(ctx context.Context) error {
		var err error
		src, err = s.load(ctx, source)
		return err
	}); err != nil {
		return nil, Result{}, err
	}
	return s.update(ctx, "adopt_protocols", target, func(d *Dataset) error {
		return d.AdoptProtocols(src)
	})
}

// AdoptLandmarks copies landmarks from the source dataset into the target.
func (s *Service) AdoptLandmarks(ctx context.Context, target, source string) (*Dataset, Result, error) {
	var src *Dataset
	if err := s.observe(ctx, "load_adoption_source", func(ctx context.Context) error {
		var err error
		src, err = s.load(ctx, source)
		return err
	}); err != nil {
		return nil, Result{}, err
	}
	return s.update(ctx, "adopt_landmarks", target, func(d *Dataset) error {
		return d.AdoptLandmarks(src)
	})
}

// Concatenate appends the second dataset's frames after the first's and
// stores the merged dataset under resultName (the first dataset's name when
// empty). The inputs stay untouched in the store.
func (s *Service) Concatenate(ctx context.Context, first, second, resultName string, opts ConcatOptions) (*Dataset, Result, error) {
	var (
		merged *Dataset
		res    Result
	)
	err := s.observe(ctx, "concatenate", func(ctx context.Context) error {
		a, err := s.load(ctx, first)
		if err != nil {
			return err
		}
		b, err := s.load(ctx, second)
		if err != nil {
			return err
		}
		merged, res, err = domain.Concatenate(a, b, opts)
		if err != nil {
			return err
		}
		if resultName != "" {
			merged.Name = resultName
			merged.Whole.Name = resultName
		}
		ruleRes, err := s.evaluateAndSave(ctx, merged)
		if err != nil {
			return err
		}
		res.Merge(ruleRes)
		return nil
	})
	if err != nil {
		return nil, res, err
	}
	return merged, res, nil
}

// ExtractUnit builds a dataset from one analysis unit's frames and stores
// it under its derived name.
func (s *Service) ExtractUnit(ctx context.Context, name, unit string, opts ExtractOptions) (*Dataset, Result, error) {
	var (
		extracted *Dataset
		res       Result
	)
	err := s.observe(ctx, "extract_unit", func(ctx context.Context) error {
		d, err := s.load(ctx, name)
		if err != nil {
			return err
		}
		extracted, err = d.ExtractUnit(unit, opts)
		if err != nil {
			return err
		}
		res, err = s.evaluateAndSave(ctx, extracted)
		return err
	})
	if err != nil {
		return nil, res, err
	}
	return extracted, res, nil
}

// payloadArchive is the serialised form of one track's frame payloads.
type payloadArchive struct {
	Dataset     string             `json:"dataset"`
	Track       string             `json:"track"`
	Family      domain.TrackFamily `json:"family"`
	Calibration domain.Calibration `json:"calibration"`
	Frames      []domain.Payload   `json:"frames"`
	ArchivedAt  time.Time          `json:"archived_at"`
}

func payloadKey(dataset, family, track string) string {
	return fmt.Sprintf("datasets/%s/%s/%s.json", dataset, family, track)
}

// ArchiveTrackPayloads writes one track's raw frame payloads to the payload
// archive store, keyed by dataset, family and track name.
func (s *Service) ArchiveTrackPayloads(ctx context.Context, name string, family domain.TrackFamily, track string) (blob.Info, error) {
	var info blob.Info
	err := s.observe(ctx, "archive_track_payloads", func(ctx context.Context) error {
		if s.payloads == nil {
			return fmt.Errorf("no payload store configured")
		}
		d, err := s.load(ctx, name)
		if err != nil {
			return err
		}
		t, err := findTrack(d, family, track)
		if err != nil {
			return err
		}
		arch := payloadArchive{
			Dataset:     d.Name,
			Track:       t.Name,
			Family:      t.Family,
			Calibration: t.Calibration,
			Frames:      t.Frames,
			ArchivedAt:  s.opts.clock().UTC(),
		}
		raw, err := json.Marshal(arch)
		if err != nil {
			return err
		}
		info, err = s.payloads.Put(ctx, payloadKey(name, string(family), track), bytes.NewReader(raw), blob.PutOptions{
			ContentType: "application/json",
			Metadata:    map[string]string{"dataset": name, "track": track},
		})
		return err
	})
	return info, err
}

// RestoreTrackPayloads reads an archived track back into the named dataset,
// replacing the track's frames. Frame counts must still line up; the usual
// validation applies before the restored dataset is persisted.
func (s *Service) RestoreTrackPayloads(ctx context.Context, name string, family domain.TrackFamily, track string) (*Dataset, Result, error) {
	var arch payloadArchive
	if err := s.observe(ctx, "read_track_archive", func(ctx context.Context) error {
		if s.payloads == nil {
			return fmt.Errorf("no payload store configured")
		}
		_, rc, err := s.payloads.Get(ctx, payloadKey(name, string(family), track))
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		return json.Unmarshal(raw, &arch)
	}); err != nil {
		return nil, Result{}, err
	}
	return s.update(ctx, "restore_track_payloads", name, func(d *Dataset) error {
		t, err := findTrack(d, family, track)
		if err != nil {
			return err
		}
		t.Calibration = arch.Calibration
		t.Frames = arch.Frames
		return d.Validate()
	})
}

func findTrack(d *Dataset, family domain.TrackFamily, name string) (*Track, error) {
	tracks := d.Primary
	if family == domain.FamilySecondary {
		tracks = d.Secondary
	}
	for i := range tracks {
		if tracks[i].Name == name {
			return &tracks[i], nil
		}
	}
	return nil, domain.ErrNotFound{Entity: EntityTrack, Name: name}
}
