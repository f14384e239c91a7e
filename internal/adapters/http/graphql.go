package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/adierro/courtscan/internal/core/domain"
	"github.com/adierro/courtscan/internal/pkg/tiles"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	courtType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Court",
		Fields: graphql.Fields{
			"id":                      &graphql.Field{Type: graphql.String},
			"class":                   &graphql.Field{Type: graphql.String},
			"status":                  &graphql.Field{Type: graphql.String},
			"location":                &graphql.Field{Type: geoPointType},
			"source_confidence":       &graphql.Field{Type: graphql.Float},
			"total_feedback_count":    &graphql.Field{Type: graphql.Int},
			"positive_feedback_count": &graphql.Field{Type: graphql.Int},
			"verified_at":             &graphql.Field{Type: graphql.String},
			"distance":                &graphql.Field{Type: graphql.Float},
		},
	})

	detectionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Detection",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"class":      &graphql.Field{Type: graphql.String},
			"confidence": &graphql.Field{Type: graphql.Float},
			"model":      &graphql.Field{Type: graphql.String},
			"version":    &graphql.Field{Type: graphql.String},
			"court_id":   &graphql.Field{Type: graphql.String},
			"tile_id":    &graphql.Field{Type: graphql.String},
		},
	})

	scanType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Scan",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.String},
			"user_id":    &graphql.Field{Type: graphql.String},
			"center":     &graphql.Field{Type: geoPointType},
			"radius":     &graphql.Field{Type: graphql.Int},
			"model":      &graphql.Field{Type: graphql.String},
			"version":    &graphql.Field{Type: graphql.String},
			"tile_count": &graphql.Field{Type: graphql.Int},
		},
	})

	feedbackStatsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "FeedbackStats",
		Fields: graphql.Fields{
			"user_submissions": &graphql.Field{Type: graphql.Int},
			"total_detections": &graphql.Field{Type: graphql.Int},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"court": &graphql.Field{
				Type:        courtType,
				Description: "Get a court by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Courts.GetByID(p.Context, id)
				},
			},
			"courtsNearby": &graphql.Field{
				Type:        graphql.NewList(courtType),
				Description: "Find courts near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"class":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 500.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := p.Args["lat"].(float64)
					lon := p.Args["lon"].(float64)
					class := p.Args["class"].(string)
					radius := p.Args["radius"].(float64)
					limit := p.Args["limit"].(int)
					return deps.Courts.FindNearby(p.Context, lat, lon, class, radius, limit)
				},
			},
			"courtsByViewport": &graphql.Field{
				Type:        graphql.NewList(courtType),
				Description: "List courts inside a lat/lng bounding box",
				Args: graphql.FieldConfigArgument{
					"min_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"min_lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"max_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"max_lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"status":  &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					viewport := tiles.ViewportBBox{
						MinLat: p.Args["min_lat"].(float64),
						MinLng: p.Args["min_lng"].(float64),
						MaxLat: p.Args["max_lat"].(float64),
						MaxLng: p.Args["max_lng"].(float64),
					}
					status, err := parseStatus(p.Args["status"].(string))
					if err != nil {
						return nil, err
					}
					fc, err := deps.Courts.ListByViewport(p.Context, viewport, 0, status)
					if err != nil {
						return nil, err
					}
					// Feature properties hold the serializable court fields.
					var result []map[string]interface{}
					for _, f := range fc.Features {
						m := map[string]interface{}{
							"location": domain.GeoPoint{
								Lat: f.Geometry.Coordinates[1],
								Lon: f.Geometry.Coordinates[0],
							},
						}
						for k, v := range f.Properties {
							m[k] = v
						}
						result = append(result, m)
					}
					return result, nil
				},
			},
			"nextDetection": &graphql.Field{
				Type:        detectionType,
				Description: "Next unreviewed detection for a user",
				Args: graphql.FieldConfigArgument{
					"user_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					userID := p.Args["user_id"].(string)
					return deps.Feedback.NextForReview(p.Context, userID, nil)
				},
			},
			"feedbackStats": &graphql.Field{
				Type:        feedbackStatsType,
				Description: "Feedback progress for a user",
				Args: graphql.FieldConfigArgument{
					"user_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					userID := p.Args["user_id"].(string)
					return deps.Feedback.Stats(p.Context, userID)
				},
			},
			"scans": &graphql.Field{
				Type:        graphql.NewList(scanType),
				Description: "List past area scans, newest first",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Scans.List(p.Context)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
