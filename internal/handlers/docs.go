package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"
)

func multipartBody(extra map[string]interface{}) map[string]interface{} {
	properties := map[string]interface{}{
		"files": map[string]interface{}{
			"type":  "array",
			"items": map[string]string{"type": "string", "format": "binary"},
		},
	}
	for k, v := range extra {
		properties[k] = v
	}
	return map[string]interface{}{
		"required": true,
		"content": map[string]interface{}{
			"multipart/form-data": map[string]interface{}{
				"schema": map[string]interface{}{
					"type":       "object",
					"required":   []string{"files"},
					"properties": properties,
				},
			},
		},
	}
}

var selectionFields = map[string]interface{}{
	"shape": map[string]interface{}{
		"type":        "string",
		"enum":        []string{"auto", "foreign", "domestic"},
		"description": "Source layout; auto classifies files by name and header",
	},
	"district": map[string]interface{}{
		"type":        "string",
		"description": "District name, 전체 or empty for every district",
	},
	"sub_district": map[string]interface{}{
		"type":        "array",
		"items":       map[string]string{"type": "string"},
		"description": "Sub-districts of the district; empty selects the whole district",
	},
	"codes": map[string]interface{}{
		"type":        "string",
		"description": "Extra region codes, separated by commas or whitespace; only the first 7 digits are used",
	},
}

var errorResponse = map[string]interface{}{
	"content": map[string]interface{}{
		"application/json": map[string]interface{}{
			"schema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"error":   map[string]string{"type": "string"},
					"message": map[string]string{"type": "string"},
					"code":    map[string]string{"type": "integer"},
					"details": map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
				},
			},
		},
	},
}

func withDescription(resp map[string]interface{}, description string) map[string]interface{} {
	out := map[string]interface{}{"description": description}
	for k, v := range resp {
		out[k] = v
	}
	return out
}

func jsonResponse(description string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]string{"type": "object"},
			},
		},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the merge API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Living Population Merge API",
			"description": "Merges Seoul living population exports into one normalized workbook, filtered by region",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/merge": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Merge files into a workbook",
					"description": "Normalizes, filters, deduplicates and sorts the uploaded files. Files that fail are skipped and counted in X-Merge-Files-Failed.",
					"requestBody": multipartBody(selectionFields),
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Merged workbook",
							"headers": map[string]interface{}{
								"X-Merge-Request-Id":      map[string]interface{}{"schema": map[string]string{"type": "string"}},
								"X-Merge-Shape":           map[string]interface{}{"schema": map[string]string{"type": "string"}},
								"X-Merge-Rows":            map[string]interface{}{"schema": map[string]string{"type": "integer"}},
								"X-Merge-Files-Succeeded": map[string]interface{}{"schema": map[string]string{"type": "integer"}},
								"X-Merge-Files-Failed":    map[string]interface{}{"schema": map[string]string{"type": "integer"}},
							},
							"content": map[string]interface{}{
								xlsxContentType: map[string]interface{}{
									"schema": map[string]string{"type": "string", "format": "binary"},
								},
							},
						},
						"400": withDescription(errorResponse, "Invalid upload or selection"),
						"404": withDescription(errorResponse, "Unknown district or sub-district"),
						"422": withDescription(errorResponse, "Every file failed, or the merged result is empty or too large for one sheet"),
					},
				},
			},
			"/api/merge/report": map[string]interface{}{
				"post": map[string]interface{}{
					"summary":     "Merge files and report",
					"description": "Runs the same merge as /api/merge and returns per-file outcomes and a summary instead of the workbook",
					"requestBody": multipartBody(selectionFields),
					"responses": map[string]interface{}{
						"200": jsonResponse("Merge report"),
						"400": withDescription(errorResponse, "Invalid upload or selection"),
						"422": withDescription(errorResponse, "Every file failed"),
					},
				},
			},
			"/api/preview": map[string]interface{}{
				"post": map[string]interface{}{
					"summary": "Preview uploaded files",
					"requestBody": multipartBody(map[string]interface{}{
						"rows": map[string]interface{}{"type": "integer", "default": 5, "maximum": 100},
					}),
					"responses": map[string]interface{}{
						"200": jsonResponse("Detected encoding, delimiter, shape, header and leading rows per file"),
					},
				},
			},
			"/api/regions/districts": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":   "List districts",
					"responses": map[string]interface{}{"200": jsonResponse("District names")},
				},
			},
			"/api/regions/districts/{district}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "List sub-districts of a district",
					"parameters": []map[string]interface{}{
						{"name": "district", "in": "path", "required": true, "schema": map[string]string{"type": "string"}},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Sub-district names"),
						"404": withDescription(errorResponse, "Unknown district"),
					},
				},
			},
			"/api/regions/describe": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Describe region codes",
					"parameters": []map[string]interface{}{
						{"name": "code", "in": "query", "required": false, "schema": map[string]string{"type": "string"}},
						{"name": "codes", "in": "query", "required": false, "schema": map[string]string{"type": "string"}},
					},
					"responses": map[string]interface{}{
						"200": jsonResponse("Region entries by 7 digit prefix"),
						"400": withDescription(errorResponse, "No code given"),
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Health check",
					"responses": map[string]interface{}{
						"200": jsonResponse("Service is healthy"),
						"503": jsonResponse("Region store is unavailable"),
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Prometheus metrics",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "Metrics in Prometheus text format"},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}

var swaggerPage = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5.10.0/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.10.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({url: "{{.SpecURL}}", dom_id: '#swagger-ui', deepLinking: true});
        };
    </script>
</body>
</html>`))

// SwaggerUI serves an interactive page for the OpenAPI document
func SwaggerUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	swaggerPage.Execute(w, map[string]string{
		"Title":   "Living Population Merge API",
		"SpecURL": "/api/docs/openapi.json",
	})
}
