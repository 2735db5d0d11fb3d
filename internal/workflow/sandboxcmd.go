package workflow

// buildCommandFor and runCommandFor derive sandbox build/run commands from
// the detected framework, grounded on codenerd's
// CheckpointRunner.detectBuildCommand/detectTestCommand (a manifest-file
// lookup table), adapted from "which test runner" to "how does this
// framework's app start" since P5 runs the application, not its tests.
func buildCommandFor(framework string) string {
	switch framework {
	case "spring_boot":
		return "mvn -q -DskipTests package"
	case "fastapi", "django":
		return "pip install -r requirements.txt"
	case "express", "nestjs":
		return "npm install"
	case "actix":
		return "cargo build"
	case "gin":
		return "go build ./..."
	default:
		return "true"
	}
}

func runCommandFor(framework string) string {
	switch framework {
	case "spring_boot":
		return "mvn -q spring-boot:run"
	case "fastapi":
		return "uvicorn main:app --host 0.0.0.0 --port 8000"
	case "django":
		return "python manage.py runserver 0.0.0.0:8000"
	case "express", "nestjs":
		return "npm start"
	case "actix":
		return "cargo run"
	case "gin":
		return "go run ."
	default:
		return "true"
	}
}
