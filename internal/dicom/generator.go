package dicom

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/suyashkumar/dicom/pkg/tag"
	"go.uber.org/zap"

	"github.com/mrsinham/studyforge/internal/dicom/corruption"
	"github.com/mrsinham/studyforge/internal/dicom/modalities"
	"github.com/mrsinham/studyforge/internal/dicom/spatial"
	"github.com/mrsinham/studyforge/internal/dicom/uid"
	"github.com/mrsinham/studyforge/internal/failure"
	"github.com/mrsinham/studyforge/internal/image"
	"github.com/mrsinham/studyforge/internal/template"
	"github.com/mrsinham/studyforge/internal/util"
)

// TemplateResolver returns the merged template for a modality and an
// optional hospital.
type TemplateResolver interface {
	Resolve(modality, hospital string) (template.Template, error)
}

// ProgressFunc is notified after each persisted image. done increases by
// one on every call.
type ProgressFunc func(done, total int)

// Generator produces complete studies.
type Generator struct {
	Logger *zap.Logger
	// Sink defaults to a FileSink.
	Sink Sink
	// Templates defaults to the built-in templates.
	Templates TemplateResolver
	// Source feeds identifiers, content and faults. Nil uses the
	// process-wide source.
	Source util.Source
	// Workers bounds concurrent encoding. Zero uses one per CPU.
	Workers int
}

// settings are the per-study values resolved from the template.
type settings struct {
	modality       string
	sopClass       string
	versionName    string
	characterSet   CharacterSet
	attributes     []attribute
	vendors        []corruption.Vendor
	faultsInjected bool
}

// attribute is a template or job value written on every record.
type attribute struct {
	tag   tag.Tag
	value string
}

// writeJob is one record waiting for its turn. turn is closed once the
// previous record is stored; done is closed once this one is.
type writeJob struct {
	seq  int
	name string
	rec  *Record
	turn <-chan struct{}
	done chan struct{}
}

type writeResult struct {
	seq     int
	path    string
	err     error
	skipped bool
}

// Generate writes every image of req through the sink and returns the
// destination. Records are produced in series order and stored in that
// order; only encoding runs concurrently. Once a write fails, no later
// record is stored. Cancellation is checked between images.
func (g *Generator) Generate(ctx context.Context, req Request, progress ProgressFunc) (string, error) {
	log := g.Logger
	if log == nil {
		log = zap.NewNop()
	}
	total := req.TotalImages()
	log = log.With(
		zap.String("job", req.JobName),
		zap.String("patient", req.Subject.ID),
		zap.String("destination", req.Output),
	)
	log.Info("generation started", zap.Int("images", total))

	written, err := g.generate(ctx, log, req, total, progress)
	if err != nil {
		if failure.Is(err) {
			log.Error("generation failed", zap.Int("written", written), zap.Error(err))
			return "", err
		}
		log.Error("generation failed unexpectedly", zap.Int("written", written), zap.Error(err))
		return "", &failure.GenerationError{Msg: "Unexpected generation error", Err: err}
	}

	log.Info("generation completed", zap.Int("written", written))
	return req.Output, nil
}

func (g *Generator) generate(ctx context.Context, log *zap.Logger, req Request, total int, progress ProgressFunc) (int, error) {
	src := util.OrDefault(g.Source)

	level, err := corruption.ParseLevel(req.Fault.Level)
	if err != nil {
		return 0, err
	}
	injector := corruption.NewInjector(level, src)

	method, err := uid.ParseMethod(req.UIDMethod)
	if err != nil {
		return 0, err
	}
	uids, err := uid.New(method, req.UIDRoot, uid.WithSource(src))
	if err != nil {
		return 0, err
	}
	identity := Identity{
		StudyUID:               uids.StudyUID(),
		FrameOfReferenceUID:    uids.FrameOfReferenceUID(),
		ImplementationClassUID: uids.CreatorUID(),
		InstanceCreatorUID:     uids.CreatorUID(),
	}

	templates := g.Templates
	if templates == nil {
		templates = template.NewLoader("")
	}
	tmpl, err := templates.Resolve(req.ModalityTemplate, req.HospitalTemplate)
	if err != nil {
		return 0, err
	}
	st, err := resolveSettings(log, tmpl, req)
	if err != nil {
		return 0, err
	}
	st.faultsInjected = injector.Enabled()

	sink := g.Sink
	if sink == nil {
		sink = NewFileSink()
	}
	if err := sink.Prepare(ctx, req.Output); err != nil {
		return 0, err
	}

	transfer := req.TransferSyntax
	if transfer == "" {
		transfer = ExplicitVRLittleEndian
	}
	content := req.Content
	if content == nil {
		content = image.NewLabelSpec()
	}

	workers := g.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = max(1, min(workers, total))
	log.Debug("writer pool started",
		zap.Int("workers", workers),
		zap.String("modality", st.modality),
		zap.String("fault_level", string(level)),
	)

	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan writeJob, workers)
	results := make(chan writeResult, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				// an encoding failure resurfaces from sink.Write
				_ = job.rec.Encode()

				select {
				case <-job.turn:
				case <-wctx.Done():
				}
				if wctx.Err() != nil {
					results <- writeResult{seq: job.seq, skipped: true}
					continue
				}
				path, err := sink.Write(wctx, job.name, job.rec)
				if err == nil {
					close(job.done)
				}
				results <- writeResult{seq: job.seq, path: path, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	type outcome struct {
		done int
		err  error
	}
	collected := make(chan outcome, 1)
	go func() {
		var o outcome
		for r := range results {
			if r.skipped {
				continue
			}
			if r.err != nil {
				if o.err == nil {
					o.err = r.err
					cancel()
				}
				continue
			}
			if o.err != nil {
				continue
			}
			o.done++
			log.Debug("image written", zap.Int("seq", r.seq), zap.String("path", r.path))
			if progress != nil {
				progress(o.done, total)
			}
		}
		collected <- o
	}()

	p := producer{
		req:      req,
		identity: identity,
		settings: st,
		uids:     uids,
		builder:  NewBuilder(injector),
		synth:    image.NewSynthesizer(src),
		src:      src,
		content:  content,
		transfer: transfer,
	}
	produceErr := p.run(wctx, jobs)
	close(jobs)

	o := <-collected
	if o.err != nil {
		return o.done, o.err
	}
	if produceErr != nil {
		return o.done, produceErr
	}
	return o.done, nil
}

// producer builds records strictly in (series, image) order.
type producer struct {
	req      Request
	identity Identity
	settings settings
	uids     *uid.Generator
	builder  *Builder
	synth    *image.Synthesizer
	src      util.Source
	content  image.Content
	transfer string
}

func (p *producer) run(ctx context.Context, jobs chan<- writeJob) error {
	turn := make(chan struct{})
	close(turn)
	seq := 1
	for _, series := range p.req.Series {
		seriesUID := p.uids.SeriesUID()
		var opts []spatial.Option
		if series.PixelSpacing != [2]float64{} {
			opts = append(opts, spatial.WithPixelSpacing(series.PixelSpacing[0], series.PixelSpacing[1]))
		}
		calc := spatial.New(series.Thickness, series.Spacing, series.StartZ, opts...)

		for i := 0; i < series.ImageCount; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := p.record(series, seriesUID, calc, i)
			if err != nil {
				return err
			}

			job := writeJob{seq: seq, name: p.filename(seq), rec: rec, turn: turn, done: make(chan struct{})}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return ctx.Err()
			}
			turn = job.done
			seq++
		}
	}
	return nil
}

func (p *producer) record(series SeriesSpec, seriesUID string, calc spatial.Calculator, index int) (*Record, error) {
	sopUID := p.uids.InstanceUID(p.req.Fault.AllowInvalidInstanceUID)

	samples, err := p.synth.Render(p.content, sopUID)
	if err != nil {
		return nil, err
	}

	envelope := Envelope{
		MediaStorageSOPClassUID:    p.settings.sopClass,
		MediaStorageSOPInstanceUID: sopUID,
		TransferSyntaxUID:          p.transfer,
		ImplementationClassUID:     p.identity.ImplementationClassUID,
		ImplementationVersionName:  p.settings.versionName,
	}
	slice := calc.Calculate(index)

	rec, err := p.builder.Build(BuildInput{
		Subject:        p.req.Subject,
		Study:          p.req.Study,
		Series:         series,
		Instance:       InstanceSpec{Number: slice.InstanceNumber, AcquisitionNumber: 1},
		Identity:       p.identity,
		SeriesUID:      seriesUID,
		SOPInstanceUID: sopUID,
		Modality:       p.settings.modality,
		Slice:          slice,
		Samples:        samples,
		Envelope:       envelope,
		CharacterSet:   p.settings.characterSet,
	})
	if err != nil {
		return nil, err
	}

	for _, a := range p.settings.attributes {
		rec.Set(mustNewElement(a.tag, []string{a.value}))
	}
	for _, e := range corruption.PrivateBlocks(p.settings.vendors, p.src) {
		rec.Set(e)
	}
	rec.Relaxed = p.settings.faultsInjected || len(p.settings.vendors) > 0
	rec.MalformedLengths = p.req.Fault.MalformedLengths
	return rec, nil
}

func (p *producer) filename(seq int) string {
	return fmt.Sprintf("%s_%s_%s_%03d.dcm", p.req.Subject.ID, p.req.Study.Date, p.settings.modality, seq)
}

// resolveSettings reads the per-study values from the merged template and
// the job. Job extra tags are written after template attributes.
func resolveSettings(log *zap.Logger, tmpl template.Template, req Request) (settings, error) {
	st := settings{
		modality:     string(modalities.CT),
		versionName:  DefaultImplementationVersionName,
		characterSet: req.CharacterSet,
	}

	if m, ok := tmpl.String("info", "modality"); ok {
		st.modality = m
	}
	st.sopClass = modalities.Lookup(st.modality).SOPClassUID
	if v, ok := tmpl.Lookup("file_meta", "media_storage_sop_class_uid"); ok && v != nil {
		st.sopClass = fmt.Sprint(v)
	}
	if v, ok := tmpl.Lookup("file_meta", "implementation_version_name"); ok && v != nil {
		st.versionName = fmt.Sprint(v)
	}

	if v, ok := tmpl.Lookup("character_set", "specific_character_set"); ok {
		if v == nil {
			st.characterSet.Specific = nil
		} else {
			s := fmt.Sprint(v)
			st.characterSet.Specific = &s
		}
	}
	if b, ok := tmpl.Bool("patient_module", "patient_name", "use_ideographic"); ok {
		st.characterSet.UseIdeographic = b
	}
	if b, ok := tmpl.Bool("patient_module", "patient_name", "use_phonetic"); ok {
		st.characterSet.UsePhonetic = b
	}

	for _, section := range util.TemplateSections() {
		values := tmpl.Section(section)
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if values[k] == nil {
				continue
			}
			info, err := util.LookupTemplateKey(section, k)
			if err != nil {
				log.Warn("ignoring template key", zap.String("section", section), zap.Error(err))
				continue
			}
			st.attributes = append(st.attributes, attribute{tag: info.Tag, value: fmt.Sprint(values[k])})
		}
	}

	names := make([]string, 0, len(req.ExtraTags))
	for name := range req.ExtraTags {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		info, err := util.GetTagByName(name)
		if err != nil {
			return settings{}, &failure.ConfigurationError{Msg: fmt.Sprintf("Invalid extra tag: %v", err), Err: err}
		}
		st.attributes = append(st.attributes, attribute{tag: info.Tag, value: req.ExtraTags[name]})
	}

	vendors, err := corruption.ParseVendors(req.Fault.Vendors)
	if err != nil {
		return settings{}, &failure.ConfigurationError{Msg: fmt.Sprintf("Invalid vendor: %v", err), Err: err}
	}
	st.vendors = vendors
	return st, nil
}
