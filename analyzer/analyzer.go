package analyzer

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
	"golang.org/x/tools/go/types/typeutil"
)

var Analyzer = &analysis.Analyzer{
	Name:     "taskhub",
	Doc:      "Checks orchestrator functions for non-deterministic code",
	Run:      run,
	Requires: []*analysis.Analyzer{inspect.Analyzer},
}

// nonDeterministic maps package paths to functions that must not be called from orchestrators, along
// with the suggested replacement. An empty function name matches every function of the package.
var nonDeterministic = map[string]map[string]string{
	"time": {
		"Now":      "use ctx.CurrentTime instead of time.Now in orchestrators",
		"Since":    "use ctx.CurrentTime instead of time.Since in orchestrators",
		"Until":    "use ctx.CurrentTime instead of time.Until in orchestrators",
		"Sleep":    "use ctx.CreateTimer instead of time.Sleep in orchestrators",
		"After":    "use ctx.CreateTimer instead of time.After in orchestrators",
		"Tick":     "use ctx.CreateTimer instead of time.Tick in orchestrators",
		"NewTimer": "use ctx.CreateTimer instead of time.NewTimer in orchestrators",
	},
	"math/rand": {
		"": "random numbers are not deterministic; generate them in an activity",
	},
	"math/rand/v2": {
		"": "random numbers are not deterministic; generate them in an activity",
	},
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspector := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{(*ast.FuncDecl)(nil)}

	inspector.Preorder(nodeFilter, func(node ast.Node) {
		funcDecl := node.(*ast.FuncDecl)

		if funcDecl.Body == nil || !isOrchestrator(pass, funcDecl) {
			return
		}

		// Orchestrators return (any, error)
		results := funcDecl.Type.Results
		if results.NumFields() != 2 {
			pass.Reportf(funcDecl.Pos(), "orchestrator %q must return two values, a result and `error`", funcDecl.Name.Name)
		} else {
			last := results.List[len(results.List)-1]
			if types.ExprString(last.Type) != "error" {
				pass.Reportf(funcDecl.Pos(), "orchestrator %q doesn't return `error` as last return value", funcDecl.Name.Name)
			}
		}

		ast.Inspect(funcDecl.Body, func(n ast.Node) bool {
			switch stmt := n.(type) {
			case *ast.RangeStmt:
				t := pass.TypesInfo.TypeOf(stmt.X)
				if t == nil {
					return true
				}

				if _, ok := t.Underlying().(*types.Map); ok {
					pass.Reportf(stmt.Pos(), "iterating over a map is not deterministic and not allowed in orchestrators")
				}

			case *ast.GoStmt:
				pass.Reportf(stmt.Pos(), "`go` statements are not allowed in orchestrators; schedule work with ctx.CallActivity")

			case *ast.SelectStmt:
				pass.Reportf(stmt.Pos(), "`select` is not deterministic and not allowed in orchestrators; await tasks instead")

			case *ast.CallExpr:
				checkCall(pass, stmt)
			}

			return true
		})
	})

	return nil, nil
}

func checkCall(pass *analysis.Pass, call *ast.CallExpr) {
	f := typeutil.StaticCallee(pass.TypesInfo, call)
	if f == nil || f.Pkg() == nil {
		return
	}

	// Methods like rand.Rand.Intn are caught through the constructor call
	if sig, ok := f.Type().(*types.Signature); ok && sig.Recv() != nil {
		return
	}

	funcs, ok := nonDeterministic[f.Pkg().Path()]
	if !ok {
		return
	}

	if msg, ok := funcs[f.Name()]; ok {
		pass.Reportf(call.Pos(), "%s", msg)
	} else if msg, ok := funcs[""]; ok {
		pass.Reportf(call.Pos(), "%s", msg)
	}
}

// isOrchestrator reports whether the first parameter of the function is a *workflow.OrchestrationContext.
func isOrchestrator(pass *analysis.Pass, funcDecl *ast.FuncDecl) bool {
	params := funcDecl.Type.Params.List
	if len(params) < 1 {
		return false
	}

	ptr, ok := pass.TypesInfo.TypeOf(params[0].Type).(*types.Pointer)
	if !ok {
		return false
	}

	named, ok := ptr.Elem().(*types.Named)
	if !ok {
		return false
	}

	obj := named.Obj()

	return obj.Pkg() != nil && obj.Pkg().Name() == "workflow" && obj.Name() == "OrchestrationContext"
}
