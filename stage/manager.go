// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package stage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/rp/device"
	"github.com/gogpu/rp/internal/logging"
)

// Manager errors.
var (
	// ErrSetupDone is returned when mutating the graph after Setup.
	ErrSetupDone = errors.New("stage: graph already set up")

	// ErrStageExists is returned when adding two stages with the same ID.
	ErrStageExists = errors.New("stage: stage already registered")

	// ErrDuplicateProducer is returned when two stages declare the same
	// produced pipe or input.
	ErrDuplicateProducer = errors.New("stage: resource produced twice")

	// ErrGraphCycle is returned when the pipe dependencies are cyclic.
	// Intentional feedback must be declared with FuturePrefix or
	// PreviousFramePrefix instead.
	ErrGraphCycle = errors.New("stage: dependency cycle")

	// ErrMissingPipe is returned when a required pipe has no producer.
	ErrMissingPipe = errors.New("stage: required pipe not produced")

	// ErrMissingInput is returned when a required input is not registered.
	ErrMissingInput = errors.New("stage: required input not registered")

	// ErrNotPublished is returned when a stage declares a produced
	// resource but does not publish a value for it during Create.
	ErrNotPublished = errors.New("stage: declared resource not published")

	// ErrBadTransferSource is returned when a PreviousFrame requirement
	// points at a pipe whose value is not a texture image.
	ErrBadTransferSource = errors.New("stage: previous-frame source is not a texture")
)

// SetupError aggregates the per-stage binding failures of a Setup pass.
// These are fail-soft: each affected stage has been disabled and the rest
// of the graph is wired and runnable. Fatal conditions (cycles, double
// production, stage Create failures) are returned directly instead.
type SetupError struct {
	Errs []error
}

func (e *SetupError) Error() string { return errors.Join(e.Errs...).Error() }

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *SetupError) Unwrap() []error { return e.Errs }

// Manager owns the stage graph: registration, topological ordering,
// resource wiring, and the per-frame, resize and reload walks.
//
// Manager is not safe for concurrent use; all calls belong on the render
// thread. This matches the host engine, which drives rendering from a
// single thread.
type Manager struct {
	ctx    *Context
	stages []RenderStage

	inputs     map[string]any
	inputOrder []string
	defines    map[string]string

	pipes     map[string]any
	producers map[string]string // declared resource -> stage ID

	futureBinds []futureBind
	prevStage   *PreviousPipesStage

	order     []RenderStage
	setupDone bool
}

// futureBind defers wiring a pipe into a stage until after all stages are
// created.
type futureBind struct {
	consumer RenderStage
	pipe     string
	input    string // bound shader-input name
}

// NewManager creates a stage manager for the given context. The context is
// shared with every stage: resolution changes during resize are visible to
// all of them.
func NewManager(ctx *Context) *Manager {
	return &Manager{
		ctx:       ctx,
		inputs:    make(map[string]any),
		defines:   make(map[string]string),
		pipes:     make(map[string]any),
		producers: make(map[string]string),
	}
}

// AddStage registers a stage. Registration order breaks ties between
// stages with no dependency relation, keeping the schedule deterministic.
func (m *Manager) AddStage(st RenderStage) error {
	if m.setupDone {
		return ErrSetupDone
	}
	for _, other := range m.stages {
		if other.StageID() == st.StageID() {
			return fmt.Errorf("%w: %s", ErrStageExists, st.StageID())
		}
	}
	m.stages = append(m.stages, st)
	return nil
}

// AddInput registers a global input (a uniform value, a constant buffer)
// available to every stage that requires it.
func (m *Manager) AddInput(name string, value any) {
	if _, ok := m.inputs[name]; !ok {
		m.inputOrder = append(m.inputOrder, name)
	}
	m.inputs[name] = value
}

// SetInput updates a global input. After setup the new value is pushed
// into every stage that requires it, so per-frame values (time of day,
// camera data) reach their consumers without a rebind pass.
func (m *Manager) SetInput(name string, value any) {
	m.AddInput(name, value)
	if !m.setupDone {
		return
	}
	for _, st := range m.order {
		for _, req := range requirementsOf(st) {
			if req.input && req.name == name {
				st.SetShaderInput(name, value)
			}
		}
	}
}

// SetDefine exports a shader define into the generated define header.
func (m *Manager) SetDefine(name, value string) {
	m.defines[name] = value
}

// Defines returns the merged define set (pipeline, plugin, and stage
// defines). The returned map is live; treat it as read-only.
func (m *Manager) Defines() map[string]string {
	return m.defines
}

// Setup builds and wires the stage graph:
//
//  1. Declared produced pipes and inputs are registered; double production
//     is an error.
//  2. Stages are topologically sorted along producer-to-consumer edges.
//     PreviousFrame and future requirements add no edge; a genuine cycle
//     aborts setup.
//  3. Stages are created in order. After each Create, its published
//     resources are collected and its requirements are bound as shader
//     inputs. A stage with an unsatisfiable requirement is disabled and
//     reported through SetupError; setup continues with the remaining
//     stages.
//  4. Future binds are resolved, previous-frame transfers are allocated,
//     and the internal transfer stage is created last.
//
// Setup leaves the merged defines in Defines; callers push them into the
// shader loader through WriteAutoconfig before stages compile programs —
// WriteAutoconfig is therefore called internally before stage creation and
// again when defines change.
func (m *Manager) Setup() error {
	if m.setupDone {
		return ErrSetupDone
	}

	enabled := m.enabledStages()

	if err := m.collectProducers(enabled); err != nil {
		return err
	}

	order, err := m.sort(enabled)
	if err != nil {
		return err
	}
	m.order = order

	// Stage defines must be in the header before any stage compiles its
	// programs during Create.
	for _, st := range order {
		for k, v := range st.ProducedDefines() {
			if old, ok := m.defines[k]; ok && old != v {
				logging.Logger().Warn("define redefined",
					"define", k, "old", old, "new", v, "stage", st.StageID())
			}
			m.defines[k] = v
		}
	}
	m.WriteAutoconfig()

	var errs []error
	var prevReqs []prevRequirement

	for _, st := range order {
		if err := st.Create(m.ctx); err != nil {
			return fmt.Errorf("stage %s: create: %w", st.StageID(), err)
		}
		if err := m.collectResources(st); err != nil {
			return err
		}
		reqs, bindErrs := m.bindStage(st)
		prevReqs = append(prevReqs, reqs...)
		errs = append(errs, bindErrs...)

		logging.Logger().Debug("created stage",
			"stage", st.StageID(), "plugin", st.PluginID(),
			"produces", strings.Join(st.ProducedPipes(), ","))
	}

	for _, fb := range m.futureBinds {
		v, ok := m.pipes[fb.pipe]
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s (future, stage %s)",
				ErrMissingPipe, fb.pipe, fb.consumer.StageID()))
			fb.consumer.SetActive(false)
			continue
		}
		fb.consumer.SetShaderInput(fb.input, v)
	}

	if err := m.resolvePreviousPipes(prevReqs, &errs); err != nil {
		return err
	}

	m.setupDone = true
	logging.Logger().Info("stage graph ready",
		"stages", len(m.order), "pipes", len(m.pipes), "defines", len(m.defines))
	if len(errs) > 0 {
		return &SetupError{Errs: errs}
	}
	return nil
}

// enabledStages filters out stages disabled before setup.
func (m *Manager) enabledStages() []RenderStage {
	out := make([]RenderStage, 0, len(m.stages))
	for _, st := range m.stages {
		if st.Active() {
			out = append(out, st)
		} else {
			logging.Logger().Debug("skipping disabled stage", "stage", st.StageID())
		}
	}
	return out
}

// collectProducers registers every declared produced pipe and input,
// rejecting double production.
func (m *Manager) collectProducers(stages []RenderStage) error {
	for _, st := range stages {
		for _, name := range append(append([]string{}, st.ProducedPipes()...), st.ProducedInputs()...) {
			if owner, ok := m.producers[name]; ok {
				return fmt.Errorf("%w: %q by %s and %s",
					ErrDuplicateProducer, name, owner, st.StageID())
			}
			m.producers[name] = st.StageID()
		}
	}
	return nil
}

// sort orders stages topologically along producer-to-consumer edges,
// breaking ties by registration order (Kahn's algorithm with stable
// selection). The remaining stages of a cyclic graph are reported in the
// error.
func (m *Manager) sort(stages []RenderStage) ([]RenderStage, error) {
	index := make(map[string]int, len(stages))
	for i, st := range stages {
		index[st.StageID()] = i
	}

	indegree := make([]int, len(stages))
	successors := make([][]int, len(stages))

	for i, st := range stages {
		for _, req := range requirementsOf(st) {
			if req.previous || req.future {
				continue
			}
			owner, ok := m.producers[req.name]
			if !ok {
				// No producer: reported during binding, not an edge.
				continue
			}
			j, ok := index[owner]
			if !ok || j == i {
				continue
			}
			successors[j] = append(successors[j], i)
			indegree[i]++
		}
	}

	order := make([]RenderStage, 0, len(stages))
	emitted := make([]bool, len(stages))

	for len(order) < len(stages) {
		picked := -1
		for i := range stages {
			if !emitted[i] && indegree[i] == 0 {
				picked = i
				break
			}
		}
		if picked < 0 {
			var cyclic []string
			for i, st := range stages {
				if !emitted[i] {
					cyclic = append(cyclic, st.StageID())
				}
			}
			return nil, fmt.Errorf("%w: %s", ErrGraphCycle, strings.Join(cyclic, " -> "))
		}
		emitted[picked] = true
		order = append(order, stages[picked])
		for _, succ := range successors[picked] {
			indegree[succ]--
		}
	}
	return order, nil
}

// requirement is a parsed entry of RequiredPipes/RequiredInputs.
type requirement struct {
	name     string
	input    bool // registered input rather than a pipe
	previous bool
	future   bool
}

// requirementsOf parses a stage's declarations.
func requirementsOf(st RenderStage) []requirement {
	var reqs []requirement
	for _, name := range st.RequiredPipes() {
		r := requirement{name: name}
		if rest, ok := strings.CutPrefix(name, PreviousFramePrefix); ok {
			r.name = rest
			r.previous = true
		} else if rest, ok := strings.CutPrefix(name, FuturePrefix); ok {
			r.name = rest
			r.future = true
		}
		reqs = append(reqs, r)
	}
	for _, name := range st.RequiredInputs() {
		reqs = append(reqs, requirement{name: name, input: true})
	}
	return reqs
}

// collectResources gathers the values a stage published for its declared
// produced pipes and inputs.
func (m *Manager) collectResources(st RenderStage) error {
	for _, name := range st.ProducedPipes() {
		v, ok := st.Resource(name)
		if !ok {
			return fmt.Errorf("%w: pipe %q of %s", ErrNotPublished, name, st.StageID())
		}
		m.pipes[name] = v
	}
	for _, name := range st.ProducedInputs() {
		v, ok := st.Resource(name)
		if !ok {
			return fmt.Errorf("%w: input %q of %s", ErrNotPublished, name, st.StageID())
		}
		m.AddInput(name, v)
	}
	return nil
}

// prevRequirement records a PreviousFrame consumption found during setup.
type prevRequirement struct {
	consumer RenderStage
	pipe     string
}

// bindStage wires a stage's requirements as shader inputs. Unsatisfiable
// requirements disable the stage and are returned as errors.
func (m *Manager) bindStage(st RenderStage) ([]prevRequirement, []error) {
	var prevReqs []prevRequirement
	var errs []error

	for _, req := range requirementsOf(st) {
		switch {
		case req.previous:
			prevReqs = append(prevReqs, prevRequirement{consumer: st, pipe: req.name})

		case req.future:
			m.futureBinds = append(m.futureBinds, futureBind{
				consumer: st, pipe: req.name, input: req.name,
			})

		case req.input:
			v, ok := m.inputs[req.name]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %q (stage %s)",
					ErrMissingInput, req.name, st.StageID()))
				st.SetActive(false)
				continue
			}
			st.SetShaderInput(req.name, v)

		default:
			v, ok := m.pipes[req.name]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: %q (stage %s)",
					ErrMissingPipe, req.name, st.StageID()))
				st.SetActive(false)
				continue
			}
			st.SetShaderInput(req.name, v)
		}
	}
	return prevReqs, errs
}

// resolvePreviousPipes allocates a persistent copy image per consumed
// previous-frame pipe, registers the transfer on the internal stage, and
// binds the copies into the consumers. The internal stage is created last:
// it must run after every producer has written its pipe for the frame.
func (m *Manager) resolvePreviousPipes(reqs []prevRequirement, errs *[]error) error {
	if len(reqs) == 0 {
		return nil
	}

	m.prevStage = NewPreviousPipesStage()
	copies := make(map[string]*device.Image)

	for _, req := range reqs {
		dst, ok := copies[req.pipe]
		if !ok {
			src, found := m.pipes[req.pipe]
			if !found {
				*errs = append(*errs, fmt.Errorf("%w: %s%s (stage %s)",
					ErrMissingPipe, PreviousFramePrefix, req.pipe, req.consumer.StageID()))
				req.consumer.SetActive(false)
				continue
			}
			srcImg, isImg := src.(*device.Image)
			if !isImg {
				*errs = append(*errs, fmt.Errorf("%w: %q (stage %s)",
					ErrBadTransferSource, req.pipe, req.consumer.StageID()))
				req.consumer.SetActive(false)
				continue
			}
			// Buffer and counter pipes have no per-pixel copy; only
			// texture pipes carry a previous-frame image.
			if k := srcImg.Kind(); k != device.Kind2D && k != device.Kind2DArray {
				*errs = append(*errs, fmt.Errorf("%w: %q is a %s pipe (stage %s)",
					ErrBadTransferSource, req.pipe, k, req.consumer.StageID()))
				req.consumer.SetActive(false)
				continue
			}

			var err error
			if srcImg.Kind() == device.Kind2DArray {
				dst, err = device.NewImage2DArray(m.ctx.Device, "Previous-"+req.pipe,
					m.ctx.Width, m.ctx.Height, srcImg.Layers(), prevFormat(srcImg))
			} else {
				dst, err = device.NewImage2D(m.ctx.Device, "Previous-"+req.pipe,
					m.ctx.Width, m.ctx.Height, prevFormat(srcImg))
			}
			if err != nil {
				return fmt.Errorf("stage: allocating previous copy of %q: %w", req.pipe, err)
			}
			copies[req.pipe] = dst
			m.prevStage.AddTransfer(srcImg, dst)
		}
		req.consumer.SetShaderInput("Previous_"+req.pipe, dst)
	}

	if err := m.prevStage.Create(m.ctx); err != nil {
		return fmt.Errorf("stage %s: create: %w", m.prevStage.StageID(), err)
	}
	m.order = append(m.order, m.prevStage)
	return nil
}

// prevFormat picks the format of a previous-frame copy from its source.
func prevFormat(src *device.Image) gputypes.TextureFormat {
	if src.Format() == gputypes.TextureFormatUndefined {
		return gputypes.TextureFormatRGBA16Float
	}
	return src.Format()
}

// WriteAutoconfig pushes the merged define set into the shader loader's
// generated header.
func (m *Manager) WriteAutoconfig() {
	m.ctx.Shaders.SetDefines(m.defines)
}

// Update runs the per-frame work of every active stage in dependency
// order. The internal previous-pipes transfer runs last, after every
// producer has written this frame's pipes.
func (m *Manager) Update() error {
	for _, st := range m.order {
		if !st.Active() {
			continue
		}
		if err := st.Update(); err != nil {
			return fmt.Errorf("stage %s: update: %w", st.StageID(), err)
		}
	}
	return nil
}

// ReloadShaders regenerates the define header, clears the program cache so
// changed sources recompile, reloads every active stage's programs in
// dependency order, and re-wires the bound pipes (bindings survive in the
// targets, but re-applying them keeps stages that rebuild targets during
// reload correct).
func (m *Manager) ReloadShaders() error {
	m.WriteAutoconfig()
	m.ctx.Shaders.ClearCache()

	for _, st := range m.order {
		if !st.Active() {
			continue
		}
		if err := st.ReloadShaders(); err != nil {
			return fmt.Errorf("stage %s: reload: %w", st.StageID(), err)
		}
	}

	for _, st := range m.order {
		if !st.Active() {
			continue
		}
		m.rebind(st)
	}
	return nil
}

// rebind re-applies the already-resolved requirements of a stage.
func (m *Manager) rebind(st RenderStage) {
	for _, req := range requirementsOf(st) {
		switch {
		case req.previous, req.future:
			// Previous copies and future binds were wired during Setup and
			// their images persist across reloads.
		case req.input:
			if v, ok := m.inputs[req.name]; ok {
				st.SetShaderInput(req.name, v)
			}
		default:
			if v, ok := m.pipes[req.name]; ok {
				st.SetShaderInput(req.name, v)
			}
		}
	}
}

// HandleWindowResize propagates a new pipeline resolution through every
// stage in dependency order.
func (m *Manager) HandleWindowResize(width, height int) error {
	m.ctx.Width = width
	m.ctx.Height = height
	for _, st := range m.order {
		if err := st.HandleWindowResize(width, height); err != nil {
			return err
		}
	}
	return nil
}

// Pipe returns the registered value of a produced pipe.
func (m *Manager) Pipe(name string) (any, bool) {
	v, ok := m.pipes[name]
	return v, ok
}

// Input returns the registered value of an input.
func (m *Manager) Input(name string) (any, bool) {
	v, ok := m.inputs[name]
	return v, ok
}

// Order returns the scheduled stages in execution order. Empty before
// Setup.
func (m *Manager) Order() []RenderStage {
	out := make([]RenderStage, len(m.order))
	copy(out, m.order)
	return out
}

// Producer returns the stage ID that declared a pipe or input.
func (m *Manager) Producer(resource string) (string, bool) {
	id, ok := m.producers[resource]
	return id, ok
}

// Consumers returns the stage IDs that require a pipe, in registration
// order, including previous-frame and future consumers.
func (m *Manager) Consumers(pipe string) []string {
	var out []string
	for _, st := range m.stages {
		for _, req := range requirementsOf(st) {
			if !req.input && req.name == pipe {
				out = append(out, st.StageID())
				break
			}
		}
	}
	return out
}
