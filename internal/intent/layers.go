package intent

import "strings"

// layerConvention describes, for one architectural layer, the directory
// (relative to repository root) and filename suffix a framework expects,
// plus the SOLID principles and framework-specific conventions typically
// attached to a file in that layer. Adapted from codenerd's
// internal/campaign/decomposer.go layer-mapping table, generalized from
// Java/Spring-only to the framework set §6.6 names.
type layerConvention struct {
	layer          string
	dir            string
	suffix         string
	solid          []string
	conventions    []string
}

// frameworkLayers maps a detected framework tag to its creation-ordered
// layer conventions. "generic" is the fallback used when the framework is
// unrecognized or the codebase has no manifest-detectable stack.
var frameworkLayers = map[string][]layerConvention{
	"spring_boot": {
		{"model", "src/main/java/model", "", []string{"SRP"}, []string{"@Entity", "@Table"}},
		{"dto", "src/main/java/dto", "Dto", []string{"SRP"}, []string{"record or plain POJO"}},
		{"repository", "src/main/java/repository", "Repository", []string{"ISP", "DIP"}, []string{"@Repository", "extends JpaRepository"}},
		{"service", "src/main/java/service", "Service", []string{"SRP", "DIP"}, []string{"@Service", "constructor injection"}},
		{"controller", "src/main/java/controller", "Controller", []string{"SRP"}, []string{"@RestController", "@RequestMapping"}},
	},
	"fastapi": {
		{"model", "app/models", "", []string{"SRP"}, []string{"pydantic BaseModel or SQLAlchemy declarative"}},
		{"dto", "app/schemas", "Schema", []string{"SRP"}, []string{"pydantic BaseModel"}},
		{"repository", "app/repositories", "Repository", []string{"ISP", "DIP"}, []string{"async session-scoped methods"}},
		{"service", "app/services", "Service", []string{"SRP", "DIP"}, []string{"plain class, dependency-injected via Depends"}},
		{"controller", "app/routers", "Router", []string{"SRP"}, []string{"APIRouter, path operation decorators"}},
	},
	"django": {
		{"model", "app/models", "", []string{"SRP"}, []string{"models.Model subclass"}},
		{"dto", "app/serializers", "Serializer", []string{"SRP"}, []string{"rest_framework.serializers.ModelSerializer"}},
		{"repository", "app/repositories", "Repository", []string{"ISP", "DIP"}, []string{"QuerySet-wrapping manager"}},
		{"service", "app/services", "Service", []string{"SRP", "DIP"}, []string{"plain class, no Django imports"}},
		{"controller", "app/views", "View", []string{"SRP"}, []string{"rest_framework.views.APIView"}},
	},
	"express": {
		{"model", "src/models", "Model", []string{"SRP"}, []string{"mongoose.Schema or plain class"}},
		{"dto", "src/dtos", "Dto", []string{"SRP"}, []string{"interface or zod schema"}},
		{"repository", "src/repositories", "Repository", []string{"ISP", "DIP"}, []string{"plain class wrapping the data client"}},
		{"service", "src/services", "Service", []string{"SRP", "DIP"}, []string{"plain class, constructor-injected"}},
		{"controller", "src/controllers", "Controller", []string{"SRP"}, []string{"express.Router handlers"}},
	},
	"nestjs": {
		{"model", "src/models", "", []string{"SRP"}, []string{"TypeORM @Entity"}},
		{"dto", "src/dto", "Dto", []string{"SRP"}, []string{"class-validator decorated DTO"}},
		{"repository", "src/repositories", "Repository", []string{"ISP", "DIP"}, []string{"@Injectable, extends Repository"}},
		{"service", "src/services", "Service", []string{"SRP", "DIP"}, []string{"@Injectable()"}},
		{"controller", "src/controllers", "Controller", []string{"SRP"}, []string{"@Controller()"}},
	},
	"actix": {
		{"model", "src/models", "", []string{"SRP"}, []string{"#[derive(Serialize, Deserialize)]"}},
		{"dto", "src/dtos", "Dto", []string{"SRP"}, []string{"#[derive(Deserialize)]"}},
		{"repository", "src/repositories", "Repository", []string{"ISP", "DIP"}, []string{"trait + impl over a pool"}},
		{"service", "src/services", "Service", []string{"SRP", "DIP"}, []string{"plain struct + impl"}},
		{"controller", "src/handlers", "Handler", []string{"SRP"}, []string{"async fn registered via App::service"}},
	},
	"gin": {
		{"model", "internal/model", "", []string{"SRP"}, []string{"plain struct with json tags"}},
		{"dto", "internal/dto", "", []string{"SRP"}, []string{"plain struct with json/binding tags"}},
		{"repository", "internal/repository", "Repository", []string{"ISP", "DIP"}, []string{"interface + concrete impl"}},
		{"service", "internal/service", "Service", []string{"SRP", "DIP"}, []string{"plain struct, constructor-injected"}},
		{"controller", "internal/handler", "Handler", []string{"SRP"}, []string{"gin.Context-based method"}},
	},
	"generic": {
		{"model", "models", "", []string{"SRP"}, nil},
		{"service", "services", "Service", []string{"SRP", "DIP"}, nil},
		{"controller", "controllers", "Controller", []string{"SRP"}, nil},
	},
}

func layersFor(framework string) []layerConvention {
	if layers, ok := frameworkLayers[framework]; ok {
		return layers
	}
	return frameworkLayers["generic"]
}

// fileExtensionFor returns the conventional source extension for a
// framework, used when composing suggested filenames.
func fileExtensionFor(framework string) string {
	switch framework {
	case "spring_boot":
		return ".java"
	case "fastapi", "django":
		return ".py"
	case "express", "nestjs":
		return ".ts"
	case "actix":
		return ".rs"
	case "gin":
		return ".go"
	default:
		return ""
	}
}

// fileStem renders a class name into the filename stem a framework
// conventionally uses — PascalCase files for Java/TS, snake_case for
// Python/Rust/Go.
func fileStem(className, framework string) string {
	switch framework {
	case "fastapi", "django", "actix", "gin":
		return toSnakeCase(className)
	default:
		return className
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
