// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kraklabs/seccorpus/pkg/funnel"
	"github.com/kraklabs/seccorpus/pkg/oracle"
	"github.com/kraklabs/seccorpus/pkg/record"
	"github.com/kraklabs/seccorpus/pkg/undefined"
	"github.com/kraklabs/seccorpus/pkg/vcs"
)

// reasonDuplicate counts keyword matches that resolved to an already
// harvested commit.
const reasonDuplicate = "duplicate"

// outcome is one record's result from a per-record step.
type outcome struct {
	rec record.CommitRecord
	err error
}

// collect keeps successful outcomes in order and counts the rest by reason.
func (p *Pipeline) collect(stage record.Stage, outs []outcome, rep *StageReport) []record.CommitRecord {
	kept := make([]record.CommitRecord, 0, len(outs))
	for _, o := range outs {
		if o.err != nil {
			reason := funnel.ReasonOf(o.err)
			rep.drop(reason)
			p.logger.Debug("pipeline.record.drop", "stage", stage.String(), "sha", o.rec.ShortSHA(), "reason", reason, "err", o.err)
			continue
		}
		kept = append(kept, o.rec)
	}
	return kept
}

// mapRecords runs fn over recs with the configured worker count.
func (p *Pipeline) mapRecords(ctx context.Context, stage record.Stage, recs []record.CommitRecord, fn func(context.Context, record.CommitRecord) (record.CommitRecord, error)) ([]outcome, error) {
	t := p.track(stage, len(recs))
	return MapOrdered(ctx, p.cfg.Workers, recs, func(ctx context.Context, _ int, r record.CommitRecord) outcome {
		out, err := fn(ctx, r)
		t.add(1)
		if err != nil {
			return outcome{rec: r, err: err}
		}
		return outcome{rec: out}
	})
}

// ask sends one prompt per record and joins the answers back by ID.
func (p *Pipeline) ask(ctx context.Context, stage record.Stage, recs []record.CommitRecord, build func(record.CommitRecord) oracle.Prompt) ([]oracle.Result, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	reqs := make([]oracle.Request, len(recs))
	for i, r := range recs {
		reqs[i] = oracle.Request{ID: r.ID, Prompt: build(r)}
	}
	task := reqs[0].Prompt.Task
	t := p.track(stage, len(reqs))
	results, err := p.runner.Run(ctx, reqs)
	if err != nil {
		return nil, fmt.Errorf("%s oracle: %w", task, err)
	}
	t.add(len(reqs))
	return join(stage, task, recs, results)
}

// harvest greps history for every keyword and fetches each matching commit
// once. A failing keyword is logged and skipped.
func (p *Pipeline) harvest(ctx context.Context, _ []record.CommitRecord, rep *StageReport, _ RunOptions) ([]record.CommitRecord, error) {
	keywords := p.cfg.Harvest.All()
	t := p.track(record.StageHarvest, len(keywords))

	var shas []string
	seen := make(map[string]bool)
	for _, kw := range keywords {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := p.deps.Repo.Grep(ctx, kw)
		t.add(1)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn("harvest.keyword.error", "keyword", kw, "err", err)
			continue
		}
		matches := vcs.SHAs(out)
		rep.Input += len(matches)
		p.logger.Debug("harvest.keyword", "keyword", kw, "matches", len(matches))
		for _, sha := range matches {
			if !seen[sha] {
				seen[sha] = true
				shas = append(shas, sha)
			}
		}
	}

	ft := p.track(record.StageHarvest, len(shas))
	fetched, err := MapOrdered(ctx, p.cfg.Workers, shas, func(ctx context.Context, _ int, sha string) outcome {
		defer ft.add(1)
		text, err := p.deps.Repo.Show(ctx, sha)
		if err != nil {
			return outcome{rec: record.CommitRecord{SHA: sha}, err: funnel.Drop(funnel.ReasonFetch, "%v", err)}
		}
		if text == "" {
			return outcome{rec: record.CommitRecord{SHA: sha}, err: funnel.Drop(funnel.ReasonFetch, "empty commit text")}
		}
		return outcome{rec: record.New(p.cfg.RepoID, sha, text)}
	})
	if err != nil {
		return nil, err
	}
	recs := funnel.Dedupe(p.collect(record.StageHarvest, fetched, rep))
	rep.dropN(reasonDuplicate, rep.Input-len(recs)-rep.Dropped())
	return recs, nil
}

func (p *Pipeline) filterStage(ctx context.Context, in []record.CommitRecord, rep *StageReport, _ RunOptions) ([]record.CommitRecord, error) {
	outs, err := p.mapRecords(ctx, record.StageFilter, in, func(_ context.Context, r record.CommitRecord) (record.CommitRecord, error) {
		return p.filter.Apply(r)
	})
	if err != nil {
		return nil, err
	}
	return p.collect(record.StageFilter, outs, rep), nil
}

// intent asks the intent oracle about every filtered commit. With a slice
// the judged records of [Start, End) go to a part snapshot; verdicts from
// part snapshots are reused by the full run.
func (p *Pipeline) intent(ctx context.Context, in []record.CommitRecord, rep *StageReport, opts RunOptions) ([]record.CommitRecord, error) {
	sliced := opts.End > 0
	start, end := 0, len(in)
	if sliced {
		start, end = clamp(opts.Start, opts.End, len(in))
		in = in[start:end]
		rep.Input = len(in)
	}

	prior := make(map[string]*record.Verdict)
	if !sliced && !opts.Force {
		parts, err := p.store.ReadParts(record.StageIntent)
		if err != nil {
			return nil, fmt.Errorf("read intent slices: %w", err)
		}
		for _, r := range parts {
			if r.Intent != nil && r.Intent.Failure == "" {
				prior[r.ID] = r.Intent
			}
		}
	}

	var pending []record.CommitRecord
	for _, r := range in {
		if _, ok := prior[r.ID]; !ok {
			pending = append(pending, r)
		}
	}
	if len(prior) > 0 {
		p.logger.Info("intent.reuse", "verdicts", len(in)-len(pending))
	}

	results, err := p.ask(ctx, record.StageIntent, pending, func(r record.CommitRecord) oracle.Prompt {
		return oracle.IntentPrompt(r.RawDiff)
	})
	if err != nil {
		return nil, err
	}
	for i, r := range pending {
		res := results[i]
		if !res.OK() {
			prior[r.ID] = &record.Verdict{Failure: res.Failure}
			continue
		}
		v := oracle.Judge(res.Text)
		prior[r.ID] = &v
	}

	if sliced {
		judged := make([]record.CommitRecord, 0, len(in))
		for _, r := range in {
			r.Intent = prior[r.ID]
			judged = append(judged, r)
		}
		if err := p.store.WritePart(record.StageIntent, start, end, judged); err != nil {
			return nil, fmt.Errorf("write intent slice: %w", err)
		}
		return judged, nil
	}

	outs := make([]outcome, len(in))
	for i, r := range in {
		v := prior[r.ID]
		switch {
		case v.Failure != "":
			outs[i] = outcome{rec: r, err: funnel.Drop(funnel.ReasonOracleFailure, "%s", v.Failure)}
		case !v.Positive:
			outs[i] = outcome{rec: r, err: funnel.Drop(funnel.ReasonNotSecurity, "")}
		default:
			r.Intent = v
			adv, err := r.Advance(record.StageIntent)
			outs[i] = outcome{rec: adv, err: err}
		}
	}
	return p.collect(record.StageIntent, outs, rep), nil
}

func clamp(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > end {
		start = end
	}
	return start, end
}

// refine fetches the changed file before and after the commit and narrows
// the record to a single function block.
func (p *Pipeline) refine(ctx context.Context, in []record.CommitRecord, rep *StageReport, _ RunOptions) ([]record.CommitRecord, error) {
	outs, err := p.mapRecords(ctx, record.StageRefine, in, func(ctx context.Context, r record.CommitRecord) (record.CommitRecord, error) {
		prefix, err := p.deps.Repo.FileAt(ctx, vcs.Parent(r.SHA), r.ChangedFile)
		if err != nil {
			return r, funnel.Drop(funnel.ReasonFetch, "prefix: %v", err)
		}
		fix, err := p.deps.Repo.FileAt(ctx, r.SHA, r.ChangedFile)
		if err != nil {
			return r, funnel.Drop(funnel.ReasonFetch, "fix: %v", err)
		}
		return p.refiner.Refine(r, prefix, fix)
	})
	if err != nil {
		return nil, err
	}
	return p.collect(record.StageRefine, outs, rep), nil
}

// mask places the placeholder at the change site and scans both function
// versions for undefined identifiers.
func (p *Pipeline) mask(ctx context.Context, in []record.CommitRecord, rep *StageReport, _ RunOptions) ([]record.CommitRecord, error) {
	outs, err := p.mapRecords(ctx, record.StageMask, in, func(ctx context.Context, r record.CommitRecord) (record.CommitRecord, error) {
		b := r.Block()
		masked, err := funnel.InjectMask(b)
		if err != nil {
			return r, err
		}
		pre, err := p.scanner.Free(ctx, b.PrefixText, r.PrefixContent)
		if err != nil {
			return r, &funnel.ParseError{Reason: funnel.ReasonParse, Err: err}
		}
		fix, err := p.scanner.Free(ctx, b.FixText, r.FixContent)
		if err != nil {
			return r, &funnel.ParseError{Reason: funnel.ReasonParse, Err: err}
		}
		pre = p.blacklist.FilterElements(pre)
		fix = p.blacklist.FilterElements(fix)
		if len(pre) == 0 && len(fix) == 0 {
			return r, funnel.Drop(funnel.ReasonNoUndefined, "")
		}

		out := r
		out.MaskSnippet = masked
		out.UndefinedPrefix = pre
		out.UndefinedFix = fix
		return out.Advance(record.StageMask)
	})
	if err != nil {
		return nil, err
	}
	return p.collect(record.StageMask, outs, rep), nil
}

// context runs the element and classification oracles and builds the
// context text from the validated groups.
func (p *Pipeline) context(ctx context.Context, in []record.CommitRecord, rep *StageReport, _ RunOptions) ([]record.CommitRecord, error) {
	listed, err := p.ask(ctx, record.StageContext, in, func(r record.CommitRecord) oracle.Prompt {
		b := r.Block()
		return oracle.ElementsPrompt(b.PrefixText, b.FixText)
	})
	if err != nil {
		return nil, err
	}

	var (
		survivors []record.CommitRecord
		outs      []outcome
		lists     = make(map[string]string, len(in))
	)
	for i, r := range in {
		res := listed[i]
		if !res.OK() {
			outs = append(outs, outcome{rec: r, err: funnel.Drop(funnel.ReasonOracleFailure, "elements: %s", res.Failure)})
			continue
		}
		els, err := undefined.ParseElements(res.Text)
		if err != nil {
			p.logger.Debug("context.elements.unparsed", "sha", r.ShortSHA(), "err", err)
		}
		r.Elements = els
		lists[r.ID] = elementList(els, r)
		survivors = append(survivors, r)
	}

	classified, err := p.ask(ctx, record.StageContext, survivors, func(r record.CommitRecord) oracle.Prompt {
		return oracle.ClassifyPrompt(lists[r.ID], r.PrefixContent, r.FixContent)
	})
	if err != nil {
		return nil, err
	}

	for i, r := range survivors {
		res := classified[i]
		if !res.OK() {
			outs = append(outs, outcome{rec: r, err: funnel.Drop(funnel.ReasonOracleFailure, "classify: %s", res.Failure)})
			continue
		}
		groups, err := undefined.ParseGroups(res.Text)
		if err != nil {
			outs = append(outs, outcome{rec: r, err: funnel.Drop(funnel.ReasonOracleFormat, "%v", err)})
			continue
		}
		groups = p.blacklist.FilterGroups(groups)
		if groups.Empty() {
			outs = append(outs, outcome{rec: r, err: funnel.Drop(funnel.ReasonEmptyContext, "")})
			continue
		}
		text := undefined.BuildContext(groups, undefined.Sources{Prefix: r.PrefixContent, Fix: r.FixContent})
		if strings.TrimSpace(text) == "" {
			outs = append(outs, outcome{rec: r, err: funnel.Drop(funnel.ReasonEmptyContext, "no definitions")})
			continue
		}
		r.Context = &groups
		r.ContextText = text
		adv, err := r.Advance(record.StageContext)
		outs = append(outs, outcome{rec: adv, err: err})
	}

	kept := p.collect(record.StageContext, outs, rep)
	return inOrder(in, kept), nil
}

// elementList is the element list sent to the classification oracle: the
// oracle-listed elements followed by locally found undefined identifiers
// it did not mention.
func elementList(listed []record.ListedElement, r record.CommitRecord) string {
	all := append([]record.ListedElement(nil), listed...)
	have := make(map[string]bool, len(listed))
	for _, e := range listed {
		have[e.Name] = true
	}
	for _, m := range []map[string]record.Element{r.UndefinedPrefix, r.UndefinedFix} {
		for _, name := range record.Names(m) {
			if have[name] {
				continue
			}
			have[name] = true
			all = append(all, record.ListedElement{Name: name, Kind: m[name].Kind})
		}
	}
	return undefined.RenderElements(all)
}

// inOrder restores the input order of kept records.
func inOrder(in, kept []record.CommitRecord) []record.CommitRecord {
	byID := make(map[string]record.CommitRecord, len(kept))
	for _, r := range kept {
		byID[r.ID] = r
	}
	out := make([]record.CommitRecord, 0, len(kept))
	for _, r := range in {
		if k, ok := byID[r.ID]; ok {
			out = append(out, k)
		}
	}
	return out
}

// label asks where the vulnerability sits and why, and validates both
// answers.
func (p *Pipeline) label(ctx context.Context, in []record.CommitRecord, rep *StageReport, _ RunOptions) ([]record.CommitRecord, error) {
	input := func(r record.CommitRecord) oracle.LabelInput {
		b := r.Block()
		return oracle.LabelInput{Commit: r.RawDiff, Prefix: b.PrefixText, Fix: b.FixText, Context: r.ContextText}
	}

	located, err := p.ask(ctx, record.StageLabel, in, func(r record.CommitRecord) oracle.Prompt {
		return oracle.LocatePrompt(input(r))
	})
	if err != nil {
		return nil, err
	}

	var (
		survivors []record.CommitRecord
		outs      []outcome
	)
	for i, r := range in {
		res := located[i]
		if !res.OK() {
			outs = append(outs, outcome{rec: r, err: funnel.Drop(funnel.ReasonOracleFailure, "locate: %s", res.Failure)})
			continue
		}
		ranges, err := oracle.ParseLocate(res.Text, r.Block().PrefixRange.Len())
		if err != nil {
			reason := funnel.ReasonOracleFormat
			if errors.Is(err, oracle.ErrOutOfRange) {
				reason = funnel.ReasonLocateOutOfRange
			}
			outs = append(outs, outcome{rec: r, err: funnel.Drop(reason, "%v", err)})
			continue
		}
		r.Locate = res.Text
		r.LocateRanges = ranges
		survivors = append(survivors, r)
	}

	explained, err := p.ask(ctx, record.StageLabel, survivors, func(r record.CommitRecord) oracle.Prompt {
		return oracle.ExplainPrompt(input(r), r.Locate)
	})
	if err != nil {
		return nil, err
	}
	for i, r := range survivors {
		res := explained[i]
		if !res.OK() {
			outs = append(outs, outcome{rec: r, err: funnel.Drop(funnel.ReasonOracleFailure, "explain: %s", res.Failure)})
			continue
		}
		if err := oracle.CheckExplain(res.Text); err != nil {
			outs = append(outs, outcome{rec: r, err: funnel.Drop(funnel.ReasonOracleFormat, "%v", err)})
			continue
		}
		r.Explain = strings.TrimSpace(res.Text)
		adv, err := r.Advance(record.StageLabel)
		outs = append(outs, outcome{rec: adv, err: err})
	}

	kept := p.collect(record.StageLabel, outs, rep)
	return inOrder(in, kept), nil
}
