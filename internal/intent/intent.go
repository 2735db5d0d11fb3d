// Package intent implements P2 Parse Intent: turning a free-text feature
// request plus the P1/P1.5 context into a fully populated FeatureSpec.
// Grounded on codenerd's internal/campaign/decomposer.go (LLM-driven
// task/file decomposition with structured JSON and a repair-once fallback)
// and internal/campaign/intelligence_gatherer.go (entity/requirement
// extraction from natural language).
package intent

import (
	"context"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"forge/internal/kernel"
	"forge/internal/llmutil"
	"forge/internal/logging"
	"forge/internal/types"
)

// genericNouns are excluded from the rule-based entity-extraction fallback
// unless they appear as the second word of a two-word capitalized phrase
// (e.g. "OrderService" is kept, bare "Service" is not).
var genericNouns = map[string]bool{
	"System": true, "Service": true, "Manager": true, "Handler": true,
	"Controller": true, "Module": true, "Component": true, "Application": true,
}

var capitalizedWordRe = regexp.MustCompile(`\b[A-Z][a-zA-Z0-9]*\b`)

// Parse runs P2 over state, populating state.Framework and state.FeatureSpec.
// It never returns an error for LLM degradation — failed LLM calls fall back
// per §4.3's stated semantics and are logged as warnings, not recorded as
// state errors; a nil LLMClient takes the rule-based path for every
// extraction step, since LLM use is a preference, not a requirement.
func Parse(ctx context.Context, state *types.AgentState, llm types.LLMClient) {
	timer := logging.StartTimer(logging.CategoryIntent, "Parse")
	defer timer.Stop()
	log := logging.Get(logging.CategoryIntent)

	state.Framework = confirmFramework(ctx, state, llm, log)

	candidates := extractEntities(ctx, state, llm, log)
	if len(candidates) == 0 {
		state.FeatureSpec = featureOnlyPlan(state)
		log.Warn("no entities extracted from feature request; emitting feature-only plan")
		return
	}

	toExtend, toCreate := categorize(candidates, state.ExistingEntities)
	if overlap := kernel.CheckPartition(toExtend, toCreate); len(overlap) > 0 {
		state.AddError(types.PhaseParseIntent, false, "entities appear in both extend and create partitions: %v", overlap)
	}

	existingContext := buildExistingContext(ctx, state, llm, toExtend, toCreate, log)
	newFiles := planNewFiles(toCreate, state.Framework)
	modifications := planModifications(toExtend, existingContext, state)
	todos := buildTodoList(toExtend, toCreate, newFiles)

	spec := &types.FeatureSpec{
		FeatureName:      deriveFeatureName(state.FeatureRequest),
		IntentSummary:    state.FeatureRequest,
		AffectedFiles:    affectedFiles(modifications, newFiles),
		EntitiesToExtend: toExtend,
		EntitiesToCreate: toCreate,
		ExistingContext:  existingContext,
		NewFilesPlanning: newFiles,
		Modifications:    modifications,
		TodoList:         todos,
	}

	validateInvariants(state, spec, log)
	state.FeatureSpec = spec
	log.Info("parsed intent: extend=%d create=%d todos=%d", len(toExtend), len(toCreate), len(todos))
}

func confirmFramework(ctx context.Context, state *types.AgentState, llm types.LLMClient, log *logging.Logger) string {
	detected := "generic"
	if state.ContextAnalysis != nil {
		detected = state.ContextAnalysis.Framework
	}
	if llm == nil {
		return detected
	}
	prompt := "The manifest-based framework detection for this repository is '" + detected +
		"'. The feature request is:\n\n" + state.FeatureRequest +
		"\n\nReply with exactly one framework tag that best matches both the manifest and the request " +
		"(one of: spring_boot, fastapi, django, express, nestjs, actix, gin, generic). Reply with the tag only."
	resp, err := llm.CompleteWithSystem(ctx, "You confirm framework detection for a code-generation agent.", prompt)
	if err != nil {
		log.Warn("framework confirmation LLM call failed, using detected tag %q: %v", detected, err)
		return detected
	}
	tag := strings.TrimSpace(strings.ToLower(resp))
	if _, ok := frameworkLayers[tag]; ok {
		return tag
	}
	return detected
}

type extractedEntities struct {
	Entities []string `json:"entities"`
}

func extractEntities(ctx context.Context, state *types.AgentState, llm types.LLMClient, log *logging.Logger) []string {
	if llm != nil {
		var result extractedEntities
		system := "You extract domain entity names mentioned or implied by a feature request. " +
			`Reply with JSON of the shape {"entities": ["Name", ...]}. Use PascalCase singular nouns. No commentary.`
		_, err := llmutil.Decode(ctx, llm, system, state.FeatureRequest, &result)
		if err == nil && len(result.Entities) > 0 {
			return dedupStrings(result.Entities)
		}
		log.Warn("LLM entity extraction unavailable, falling back to rule-based extraction: %v", err)
	}
	return ruleBasedExtraction(state.FeatureRequest)
}

// ruleBasedExtraction implements §4.3 step 2's fallback: capitalized nouns,
// excluding generic words unless combined with a preceding capitalized
// noun (e.g. "Order Service" / "OrderService" both keep "Service").
func ruleBasedExtraction(request string) []string {
	words := capitalizedWordRe.FindAllString(request, -1)
	var out []string
	for i, w := range words {
		if genericNouns[w] {
			combinedWithPrev := i > 0 && !genericNouns[words[i-1]]
			if !combinedWithPrev {
				continue
			}
			out = append(out, words[i-1]+w)
			continue
		}
		out = append(out, w)
	}
	return dedupStrings(out)
}

func dedupStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// normalizeEntityName applies a symmetric singular/plural fold: a trailing
// "ies" becomes "y", otherwise a trailing "es" or "s" is stripped. Because it
// is applied identically to both sides of a comparison, the relation is
// symmetric as §4.3 requires. It is not idempotent ("Classes" folds to
// "Class", which folds again to "Clas").
func normalizeEntityName(name string) string {
	lower := name
	switch {
	case strings.HasSuffix(lower, "ies") && len(lower) > 3:
		return lower[:len(lower)-3] + "y"
	case strings.HasSuffix(lower, "es") && len(lower) > 2:
		return lower[:len(lower)-2]
	case strings.HasSuffix(lower, "s") && len(lower) > 1:
		return lower[:len(lower)-1]
	default:
		return lower
	}
}

// categorize partitions candidates by exact name match first, then by
// normalized singular/plural match, against existing entities. Matching
// stays case-sensitive: normalization folds plurality only, never case.
func categorize(candidates []string, existing *types.ExistingEntities) (toExtend, toCreate []string) {
	normalizedExisting := make(map[string]string) // normalized -> declared name
	if existing != nil {
		for name := range existing.Entities {
			normalizedExisting[normalizeEntityName(name)] = name
		}
	}
	for _, c := range candidates {
		if existing != nil {
			if _, ok := existing.Entities[c]; ok {
				toExtend = append(toExtend, c)
				continue
			}
		}
		if _, ok := normalizedExisting[normalizeEntityName(c)]; ok {
			toExtend = append(toExtend, c)
			continue
		}
		toCreate = append(toCreate, c)
	}
	return toExtend, toCreate
}

type impactReasoning struct {
	FieldsToAdd  []string `json:"fields_to_add"`  // "name: type" pairs
	MethodsToAdd []string `json:"methods_to_add"`
}

func buildExistingContext(ctx context.Context, state *types.AgentState, llm types.LLMClient, toExtend, toCreate []string, log *logging.Logger) map[string]*types.ExistingContext {
	result := make(map[string]*types.ExistingContext, len(toExtend)+len(toCreate))

	for _, name := range toExtend {
		entity, _ := state.ExistingEntities.Get(name)
		ec := &types.ExistingContext{
			Entity: name,
			Action: types.ActionExtend,
		}
		if entity != nil {
			ec.TargetFile = entity.File
			ec.CurrentFields = entity.Fields
			ec.Relationships = entity.Relationships
		}
		ec.FieldsToAdd, ec.MethodsToAdd = reasonAboutImpact(ctx, llm, state.FeatureRequest, name, ec.CurrentFields, log)
		result[name] = ec
	}
	for _, name := range toCreate {
		result[name] = &types.ExistingContext{Entity: name, Action: types.ActionCreate}
	}
	return result
}

func reasonAboutImpact(ctx context.Context, llm types.LLMClient, request, entity string, fields []types.EntityField, log *logging.Logger) ([]types.EntityField, []string) {
	if llm == nil {
		return nil, nil
	}
	var fieldDesc strings.Builder
	for _, f := range fields {
		fieldDesc.WriteString("- " + f.Name + ": " + f.Type + "\n")
	}
	system := "You determine what fields and methods a feature request requires adding to an existing entity. " +
		`Reply with JSON of the shape {"fields_to_add": ["name: type", ...], "methods_to_add": ["name(args) returns", ...]}.`
	user := "Entity: " + entity + "\nCurrent fields:\n" + fieldDesc.String() + "\nFeature request:\n" + request

	var result impactReasoning
	if _, err := llmutil.Decode(ctx, llm, system, user, &result); err != nil {
		log.Warn("impact reasoning for %s failed, falling back to empty add-lists: %v", entity, err)
		return nil, nil
	}
	return parseFieldPairs(result.FieldsToAdd), result.MethodsToAdd
}

// parseFieldPairs turns "name: type" strings from the LLM into EntityField
// values; a pair missing the colon is kept with an "any" type rather than
// dropped.
func parseFieldPairs(pairs []string) []types.EntityField {
	var out []types.EntityField
	for _, p := range pairs {
		parts := strings.SplitN(p, ":", 2)
		name := strings.TrimSpace(parts[0])
		typ := "any"
		if len(parts) == 2 {
			typ = strings.TrimSpace(parts[1])
		}
		if name == "" {
			continue
		}
		out = append(out, types.EntityField{Name: name, Type: typ})
	}
	return out
}

func planNewFiles(toCreate []string, framework string) types.NewFilesPlanning {
	layers := layersFor(framework)
	ext := fileExtensionFor(framework)

	var files []types.SuggestedFile
	checker := kernel.NewChecker()
	layerOrderID := func(entity, layer string) string { return entity + ":" + layer }

	for _, entity := range toCreate {
		var prevID string
		for _, lc := range layers {
			className := entity + lc.suffix
			stem := fileStem(className, framework)
			filename := stem
			if ext != "" {
				filename += ext
			}
			files = append(files, types.SuggestedFile{
				Filename:             filename,
				RelativePath:         filepath.ToSlash(filepath.Join(lc.dir, filename)),
				Layer:                lc.layer,
				ClassName:            className,
				SOLIDPrinciples:      lc.solid,
				FrameworkConventions: lc.conventions,
			})
			id := layerOrderID(entity, lc.layer)
			if prevID != "" {
				checker.AssertDependsOn(id, prevID)
			}
			prevID = id
		}
	}

	order := make([]string, 0, len(files))
	for _, entity := range toCreate {
		for _, lc := range layers {
			order = append(order, layerOrderID(entity, lc.layer))
		}
	}
	if cyclic, _ := checker.FindCycle(); cyclic != "" {
		// Layer tables are hand-authored as chains, so a cycle here would
		// indicate a table-authoring bug rather than bad input; fall back
		// to alphabetical order rather than failing the phase.
		sort.Strings(order)
	}

	creationOrder := make([]string, 0, len(files))
	for _, id := range order {
		for i, f := range files {
			if layerOrderID(entityOf(f.ClassName, layers), f.Layer) == id {
				creationOrder = append(creationOrder, f.RelativePath)
				_ = i
				break
			}
		}
	}

	return types.NewFilesPlanning{SuggestedFiles: files, CreationOrder: dedupStrings(creationOrder)}
}

// entityOf recovers the entity prefix of a generated class name given the
// layer table used to build it, by stripping the layer's suffix.
func entityOf(className string, layers []layerConvention) string {
	for _, lc := range layers {
		if lc.suffix != "" && strings.HasSuffix(className, lc.suffix) {
			return strings.TrimSuffix(className, lc.suffix)
		}
	}
	return className
}

func planModifications(toExtend []string, existingContext map[string]*types.ExistingContext, state *types.AgentState) []types.Modification {
	var mods []types.Modification
	for _, name := range toExtend {
		ec, ok := existingContext[name]
		if !ok || ec.TargetFile == "" {
			continue
		}
		action := types.ModAddFields
		if len(ec.MethodsToAdd) > 0 && len(ec.FieldsToAdd) == 0 {
			action = types.ModAddMethod
		}
		var details []string
		for _, f := range ec.FieldsToAdd {
			details = append(details, "add field "+f.Name+" "+f.Type)
		}
		for _, m := range ec.MethodsToAdd {
			details = append(details, "add method "+m)
		}
		mods = append(mods, types.Modification{
			File:    ec.TargetFile,
			Entity:  name,
			Action:  action,
			Details: details,
		})
	}
	return mods
}

func buildTodoList(toExtend, toCreate []string, newFiles types.NewFilesPlanning) []types.TodoItem {
	var todos []types.TodoItem
	id := 1
	next := func() int { v := id; id++; return v }

	analysis := next()
	todos = append(todos, types.TodoItem{ID: analysis, Title: "Analyze impact", Phase: types.TodoAnalysis})

	planning := next()
	todos = append(todos, types.TodoItem{ID: planning, Title: "Plan file and modification layout", Phase: types.TodoPlanning, DependsOn: []int{analysis}})

	validation := next()
	todos = append(todos, types.TodoItem{ID: validation, Title: "Validate structural conformance", Phase: types.TodoValidation, DependsOn: []int{planning}})

	generation := next()
	var genFiles []string
	genFiles = append(genFiles, newFiles.CreationOrder...)
	todos = append(todos, types.TodoItem{ID: generation, Title: "Synthesize code changes", Phase: types.TodoGeneration, DependsOn: []int{validation}, FilesAffected: genFiles})

	execution := next()
	todos = append(todos, types.TodoItem{ID: execution, Title: "Execute changes", Phase: types.TodoExecution, DependsOn: []int{generation}})

	testing := next()
	todos = append(todos, types.TodoItem{ID: testing, Title: "Run or sketch tests for new/modified entities", Phase: types.TodoTesting, DependsOn: []int{execution}})

	review := next()
	todos = append(todos, types.TodoItem{ID: review, Title: "Review final diff", Phase: types.TodoReview, DependsOn: []int{testing}})

	return todos
}

func affectedFiles(mods []types.Modification, newFiles types.NewFilesPlanning) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range mods {
		if !seen[m.File] {
			seen[m.File] = true
			out = append(out, m.File)
		}
	}
	for _, f := range newFiles.SuggestedFiles {
		if !seen[f.RelativePath] {
			seen[f.RelativePath] = true
			out = append(out, f.RelativePath)
		}
	}
	sort.Strings(out)
	return out
}

var keywordRe = regexp.MustCompile(`[a-zA-Z][a-zA-Z0-9_]{3,}`)

// featureOnlyPlan implements §4.3's zero-entity failure semantics: a single
// plan with heuristic affected_files derived from request keywords, and no
// entity partitions populated.
func featureOnlyPlan(state *types.AgentState) *types.FeatureSpec {
	keywords := keywordRe.FindAllString(strings.ToLower(state.FeatureRequest), -1)
	var affected []string
	if state.ContextAnalysis != nil {
		for _, rel := range state.ContextAnalysis.RepresentativeFiles {
			base := strings.ToLower(filepath.Base(rel))
			for _, kw := range keywords {
				if strings.Contains(base, kw) {
					affected = append(affected, rel)
					break
				}
			}
		}
	}
	return &types.FeatureSpec{
		FeatureName:   deriveFeatureName(state.FeatureRequest),
		IntentSummary: state.FeatureRequest,
		AffectedFiles: dedupStrings(affected),
		TodoList:      buildTodoList(nil, nil, types.NewFilesPlanning{}),
	}
}

func deriveFeatureName(request string) string {
	words := strings.Fields(request)
	if len(words) > 6 {
		words = words[:6]
	}
	name := strings.Join(words, " ")
	if r := []rune(name); len(r) > 60 {
		name = strings.TrimSpace(string(r[:60]))
	}
	return name
}

func validateInvariants(state *types.AgentState, spec *types.FeatureSpec, log *logging.Logger) {
	for _, m := range spec.Modifications {
		if state.ContextAnalysis == nil {
			break
		}
		if !fileKnown(state, m.File) {
			log.Warn("modification targets a file not observed in context analysis: %s", m.File)
		}
	}
	existsByConvention := func(rel string) bool {
		return fileKnown(state, rel)
	}
	for _, f := range spec.NewFilesPlanning.SuggestedFiles {
		if existsByConvention(f.RelativePath) {
			state.AddError(types.PhaseParseIntent, false, "suggested new file already exists in codebase: %s", f.RelativePath)
		}
	}
	if acyclic, node, err := kernel.CheckTodoDAG(todoIDs(spec.TodoList), todoDeps(spec.TodoList)); err != nil {
		state.AddError(types.PhaseParseIntent, false, "todo dependency graph check failed: %v", err)
	} else if !acyclic {
		state.AddError(types.PhaseParseIntent, false, "todo dependency graph has a cycle through %s", node)
	}
}

func fileKnown(state *types.AgentState, rel string) bool {
	if state.ContextAnalysis == nil {
		return false
	}
	for _, f := range state.ContextAnalysis.RepresentativeFiles {
		if f == rel {
			return true
		}
	}
	return false
}

func todoIDs(todos []types.TodoItem) []string {
	ids := make([]string, len(todos))
	for i, t := range todos {
		ids[i] = strconv.Itoa(t.ID)
	}
	return ids
}

func todoDeps(todos []types.TodoItem) map[string][]string {
	deps := make(map[string][]string, len(todos))
	for _, t := range todos {
		key := strconv.Itoa(t.ID)
		for _, d := range t.DependsOn {
			deps[key] = append(deps[key], strconv.Itoa(d))
		}
	}
	return deps
}
