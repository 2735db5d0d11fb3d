// Package types holds the cross-phase data model shared by every package in
// forge. It intentionally imports nothing outside the standard library and
// google/uuid so that every phase package (discover, entities, intent,
// structure, impact, synth, exec) can depend on it without creating import
// cycles — the same role codenerd's internal/types package plays for its
// Kernel/LLMClient/VirtualStore contracts.
package types

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mode selects whether Execute Changes writes to disk.
type Mode string

const (
	ModeDryRun    Mode = "dry_run"
	ModeImplement Mode = "implement"
)

// Phase labels the seven pipeline phases plus the terminal error node.
type Phase string

const (
	PhaseAnalyzeContext    Phase = "analyze_context"
	PhaseDiscoverEntities  Phase = "discover_entities"
	PhaseParseIntent       Phase = "parse_intent"
	PhaseValidateStructure Phase = "validate_structure"
	PhaseAnalyzeImpact     Phase = "analyze_impact"
	PhaseSynthesizeCode    Phase = "synthesize_code"
	PhaseExecuteChanges    Phase = "execute_changes"
	PhaseError             Phase = "error"
	PhaseDone              Phase = "done"
)

// StateError records a single error raised during a phase. Fatal errors stop
// the workflow (route to PhaseError); non-fatal ones are warnings and the
// workflow continues in a degraded state.
type StateError struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

// AgentState is the single mutable object threaded through the workflow.
// Each phase reads the state as written by earlier phases and writes only
// the fields it owns (see the field comments). Routing functions read state
// but never write it.
type AgentState struct {
	RunID string `json:"run_id"`

	// Inputs, set once at construction.
	CodebasePath    string `json:"codebase_path"`
	FeatureRequest  string `json:"feature_request"`
	Mode            Mode   `json:"mode"`

	// Written by P1.
	ContextAnalysis *ContextAnalysis `json:"context_analysis,omitempty"`

	// Written by P1.5.
	ExistingEntities *ExistingEntities `json:"existing_entities,omitempty"`

	// Written by P2.
	Framework   string       `json:"framework,omitempty"`
	FeatureSpec *FeatureSpec `json:"feature_spec,omitempty"`

	// Written by P2A.
	StructureAssessment *StructureAssessment `json:"structure_assessment,omitempty"`

	// Written by P3.
	ImpactAnalysis *ImpactAnalysis `json:"impact_analysis,omitempty"`

	// Written by P4.
	Patches         []Patch  `json:"patches,omitempty"`
	QualityWarnings []string `json:"quality_warnings,omitempty"`

	// Written by P5.
	ExecutionResults *ExecutionResults `json:"execution_results,omitempty"`

	// Updated by every phase.
	CurrentPhase Phase `json:"current_phase"`

	// Append-only.
	Errors []StateError `json:"errors,omitempty"`
}

// NewAgentState constructs the initial state from CLI/config inputs.
func NewAgentState(codebasePath, featureRequest string, mode Mode) *AgentState {
	return &AgentState{
		RunID:          uuid.NewString(),
		CodebasePath:   codebasePath,
		FeatureRequest: featureRequest,
		Mode:           mode,
		CurrentPhase:   "",
	}
}

// AddError appends an error to the state's error list. It does not mutate
// any other field, preserving the append-only contract.
func (s *AgentState) AddError(phase Phase, fatal bool, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s.Errors = append(s.Errors, StateError{Phase: phase, Message: msg, Fatal: fatal})
}

// HasFatalError reports whether any recorded error is fatal.
func (s *AgentState) HasFatalError() bool {
	for _, e := range s.Errors {
		if e.Fatal {
			return true
		}
	}
	return false
}

// FirstErrorMessage returns the message of the first recorded error, or "".
func (s *AgentState) FirstErrorMessage() string {
	if len(s.Errors) == 0 {
		return ""
	}
	return s.Errors[0].Message
}

// ContextAnalysis is the P1 output: a structured summary of the repository.
type ContextAnalysis struct {
	Framework         string           `json:"framework"`
	Language          string           `json:"language"`
	BuildSystem       string           `json:"build_system"`
	TopLevelDirs      []string         `json:"top_level_dirs"`
	RepresentativeFiles []string       `json:"representative_files"`
	ExtensionCounts   map[string]int   `json:"extension_counts"`
	ManifestExcerpts  map[string]string `json:"manifest_excerpts,omitempty"`
	FallbackUsed      bool             `json:"fallback_used,omitempty"`
}

// EntityField describes a single declared field on an entity.
type EntityField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// EntityRelationship is a heuristically-extracted cross-entity reference.
type EntityRelationship struct {
	TargetEntity string `json:"target_entity"`
	Kind         string `json:"kind"` // e.g. "one_to_many", "foreign_key", "embeds"
	Description  string `json:"description"`
}

// Entity is a single discovered domain entity.
type Entity struct {
	Name          string               `json:"name"`
	File          string               `json:"file"` // relative to codebase_path
	Fields        []EntityField        `json:"fields"`
	Relationships []EntityRelationship `json:"relationships,omitempty"`
}

// ExistingEntities is the P1.5 output.
type ExistingEntities struct {
	Entities map[string]*Entity `json:"entities"`
}

// NewExistingEntities returns an empty, initialized map.
func NewExistingEntities() *ExistingEntities {
	return &ExistingEntities{Entities: make(map[string]*Entity)}
}

// Get returns the entity by declared name, and whether it was found.
func (e *ExistingEntities) Get(name string) (*Entity, bool) {
	if e == nil || e.Entities == nil {
		return nil, false
	}
	ent, ok := e.Entities[name]
	return ent, ok
}

// EntityAction is the per-entity plan action.
type EntityAction string

const (
	ActionExtend EntityAction = "extend"
	ActionCreate EntityAction = "create"
)

// ExistingContext is the per-entity impact record in FeatureSpec.
type ExistingContext struct {
	Entity        string        `json:"entity"`
	Action        EntityAction  `json:"action"`
	TargetFile    string        `json:"target_file,omitempty"`
	CurrentFields []EntityField `json:"current_fields,omitempty"`
	FieldsToAdd   []EntityField `json:"fields_to_add,omitempty"`
	MethodsToAdd  []string      `json:"methods_to_add,omitempty"`
	Relationships []EntityRelationship `json:"relationships,omitempty"`
}

// SuggestedFile is one planned new file in new_files_planning.
type SuggestedFile struct {
	Filename               string   `json:"filename"`
	RelativePath            string   `json:"relative_path"`
	Layer                   string   `json:"layer"`
	ClassName               string   `json:"class_name"`
	SOLIDPrinciples         []string `json:"solid_principles,omitempty"`
	FrameworkConventions    []string `json:"framework_conventions,omitempty"`
}

// NewFilesPlanning is the new_files_planning block of FeatureSpec.
type NewFilesPlanning struct {
	SuggestedFiles []SuggestedFile `json:"suggested_files"`
	CreationOrder  []string        `json:"creation_order"` // relative paths, topologically ordered
}

// ModificationAction categorizes a change to an existing file.
type ModificationAction string

const (
	ModAddFields  ModificationAction = "add_fields"
	ModAddMethod  ModificationAction = "add_method"
	ModOther      ModificationAction = "other"
)

// Modification describes one change to an existing file.
type Modification struct {
	File    string             `json:"file"`
	Entity  string             `json:"entity"`
	Action  ModificationAction `json:"action"`
	Details []string           `json:"details"`
}

// TodoPhase categorizes a todo item by pipeline stage.
type TodoPhase string

const (
	TodoAnalysis   TodoPhase = "analysis"
	TodoPlanning   TodoPhase = "planning"
	TodoValidation TodoPhase = "validation"
	TodoGeneration TodoPhase = "generation"
	TodoExecution  TodoPhase = "execution"
	TodoTesting    TodoPhase = "testing"
	TodoReview     TodoPhase = "review"
)

// TodoItem is a single dependency-ordered task.
type TodoItem struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Phase         TodoPhase `json:"phase"`
	DependsOn     []int     `json:"depends_on,omitempty"`
	FilesAffected []string  `json:"files_affected,omitempty"`
}

// FeatureSpec is the P2 output: the fully-populated plan driving P3/P4.
type FeatureSpec struct {
	FeatureName       string                      `json:"feature_name"` // <= 60 chars
	IntentSummary     string                      `json:"intent_summary"`
	AffectedFiles     []string                    `json:"affected_files"`
	EntitiesToExtend  []string                    `json:"entities_to_extend"`
	EntitiesToCreate  []string                    `json:"entities_to_create"`
	ExistingContext   map[string]*ExistingContext `json:"existing_context"`
	NewFilesPlanning  NewFilesPlanning            `json:"new_files_planning"`
	Modifications     []Modification              `json:"modifications"`
	TodoList          []TodoItem                  `json:"todo_list"`
}

// ViolationSeverity ranks structural violations for scoring.
type ViolationSeverity string

const (
	SeverityLow    ViolationSeverity = "low"
	SeverityMedium ViolationSeverity = "medium"
	SeverityHigh   ViolationSeverity = "high"
)

// SeverityWeight returns the score deduction for a severity level.
func SeverityWeight(sev ViolationSeverity) int {
	switch sev {
	case SeverityLow:
		return 2
	case SeverityMedium:
		return 5
	case SeverityHigh:
		return 10
	default:
		return 0
	}
}

// ViolationType enumerates the kinds of structural violation P2A detects.
type ViolationType string

const (
	ViolationMissingLayer         ViolationType = "missing_layer"
	ViolationNestedModel          ViolationType = "nested_model"
	ViolationDataStorageInController ViolationType = "data_storage_in_controller"
	ViolationMisplacedFile        ViolationType = "misplaced_file"
	ViolationMonolithicClass      ViolationType = "monolithic_class"
)

// Violation is a single structural-conformance finding.
type Violation struct {
	Type     ViolationType     `json:"type"`
	Severity ViolationSeverity `json:"severity"`
	File     string            `json:"file,omitempty"`
	Layer    string            `json:"layer,omitempty"`
	Message  string            `json:"message"`
}

// ExtractClass describes a monolithic-class extraction suggestion.
type ExtractClass struct {
	FromFile   string `json:"from_file"`
	ClassName  string `json:"class_name"`
	TargetFile string `json:"target_file"`
}

// RefactoringPlan is P2A's suggested remediation.
type RefactoringPlan struct {
	CreateLayers   []string       `json:"create_layers,omitempty"`
	ExtractClasses []ExtractClass `json:"extract_classes,omitempty"`
	MoveCode       []string       `json:"move_code,omitempty"`
	AddInterfaces  []string       `json:"add_interfaces,omitempty"`
}

// StructureAssessment is the P2A output.
type StructureAssessment struct {
	IsProductionReady bool            `json:"is_production_ready"`
	Score             int             `json:"score"` // 0..100
	Violations        []Violation     `json:"violations"`
	RefactoringPlan   RefactoringPlan `json:"refactoring_plan"`
}

// ImpactAnalysis is the P3 output.
type ImpactAnalysis struct {
	PatternsToFollow     []string `json:"patterns_to_follow"`
	FilesToModify        []string `json:"files_to_modify"`
	Constraints          []string `json:"constraints"`
	TestingApproach      string   `json:"testing_approach"`
	ArchitectureInsights string   `json:"architecture_insights"`
	Degraded             bool     `json:"degraded,omitempty"`
}

// PatchTool is the kind of file operation a Patch performs.
type PatchTool string

const (
	ToolWriteFile PatchTool = "write_file"
	ToolEditFile  PatchTool = "edit_file"
)

// Patch is a single file-level operation emitted by P4.
type Patch struct {
	ID          string    `json:"id"`
	Tool        PatchTool `json:"tool"`
	File        string    `json:"file"` // absolute path
	Content     string    `json:"content,omitempty"`
	OldString   string    `json:"old_string,omitempty"`
	NewString   string    `json:"new_string,omitempty"`
	Description string    `json:"description"`
}

// NewPatch stamps a fresh patch with a generated ID.
func NewPatch(tool PatchTool, file, description string) Patch {
	return Patch{ID: uuid.NewString(), Tool: tool, File: file, Description: description}
}

// SandboxErrorType classifies a sandbox run failure.
type SandboxErrorType string

const (
	SandboxCompilation  SandboxErrorType = "compilation"
	SandboxDependency   SandboxErrorType = "dependency"
	SandboxRuntime      SandboxErrorType = "runtime"
	SandboxConfiguration SandboxErrorType = "configuration"
	SandboxNetwork      SandboxErrorType = "network"
	SandboxUnknown      SandboxErrorType = "unknown"
)

// SandboxResult captures the outcome of an optional sandbox verification.
type SandboxResult struct {
	BuildSuccess bool             `json:"build_success"`
	RunSuccess   bool             `json:"run_success"`
	ErrorType    SandboxErrorType `json:"error_type,omitempty"`
	Iterations   int              `json:"iterations"`
	CriticalStop bool             `json:"critical_stop,omitempty"`
	Log          string           `json:"log,omitempty"`
}

// ExecutionResults is the P5 output.
type ExecutionResults struct {
	PatchesApplied     []string       `json:"patches_applied"`
	Errors             []string       `json:"errors"`
	VerificationStatus string         `json:"verification_status"`
	Sandbox            *SandboxResult `json:"sandbox,omitempty"`
	QualityWarnings    []string       `json:"quality_warnings,omitempty"`
}

// Elapsed returns the time that has passed since start.
func Elapsed(start time.Time) time.Duration {
	return time.Since(start)
}
