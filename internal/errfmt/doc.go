// Package errfmt turns the errors recorded while executing a GraphQL request
// into the records sent to clients.
//
// Output is safe by default: message, locations, path and the error's own
// extensions. In debug mode an error whose cause was raised with a traceback
// additionally gets an "exception" extension:
//
//	{
//	  "message": "division by zero",
//	  "locations": [{"line": 3, "column": 5}],
//	  "path": ["user", "age"],
//	  "extensions": {
//	    "exception": {
//	      "stacktrace": [
//	        "Traceback (most recent call last):",
//	        "  File \"/srv/app/resolvers.go\", line 41, in app.resolveUser",
//	        "  File \"/srv/app/resolvers.go\", line 17, in app.resolveAge",
//	        "*errors.errorString: division by zero"
//	      ],
//	      "context": {"x": "0"}
//	    }
//	  }
//	}
//
// Presence of the exception is decided by the traceback of the reported error;
// its contents describe the innermost cause of that error. Nothing in this
// package panics on behalf of its caller: a failure while building diagnostics
// drops the exception, never the error being reported.
package errfmt
