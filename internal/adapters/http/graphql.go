package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
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

	shapeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Shape",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"shape_key":   &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"precision":   &graphql.Field{Type: graphql.Int},
			"encoded":     &graphql.Field{Type: graphql.String},
			"point_count": &graphql.Field{Type: graphql.Int},
			"source":      &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"shape": &graphql.Field{
				Type:        shapeType,
				Description: "Get a shape by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					return deps.Shapes.GetByID(p.Context, id)
				},
			},
			"shapes": &graphql.Field{
				Type:        graphql.NewList(shapeType),
				Description: "List shapes, optionally filtered by source",
				Args: graphql.FieldConfigArgument{
					"source": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					source := p.Args["source"].(string)
					limit := p.Args["limit"].(int)
					offset := p.Args["offset"].(int)
					return deps.Shapes.List(p.Context, source, limit, offset)
				},
			},
			"shapeGeometry": &graphql.Field{
				Type:        graphql.NewList(geoPointType),
				Description: "Decoded coordinates of a stored shape",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["id"].(string)
					line, err := deps.Shapes.Geometry(p.Context, id)
					if err != nil {
						return nil, err
					}
					return line.Coordinates, nil
				},
			},
			"decode": &graphql.Field{
				Type:        graphql.NewList(geoPointType),
				Description: "Decode a polyline string into coordinates",
				Args: graphql.FieldConfigArgument{
					"encoded":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"precision": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: -1},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					encoded := p.Args["encoded"].(string)
					precision := p.Args["precision"].(int)
					return deps.Codec.Decode(p.Context, encoded, precision)
				},
			},
			"trackerPoints": &graphql.Field{
				Type: graphql.NewList(graphql.NewObject(graphql.ObjectConfig{
					Name: "TrackPoint",
					Fields: graphql.Fields{
						"time":       &graphql.Field{Type: graphql.String},
						"tracker_id": &graphql.Field{Type: graphql.String},
						"location":   &graphql.Field{Type: geoPointType},
						"elevation":  &graphql.Field{Type: graphql.Float},
					},
				})),
				Description: "Recorded positions for a tracker",
				Args: graphql.FieldConfigArgument{
					"tracker_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":      &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 100},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					trackerID := p.Args["tracker_id"].(string)
					limit := p.Args["limit"].(int)
					points, err := deps.Tracks.ListPoints(p.Context, trackerID, time.Time{}, limit)
					if err != nil {
						return nil, err
					}
					// Convert to maps for GraphQL field resolution
					var result []map[string]interface{}
					for _, tp := range points {
						result = append(result, map[string]interface{}{
							"time":       tp.Time.Format(time.RFC3339),
							"tracker_id": tp.TrackerID,
							"location":   tp.Location,
							"elevation":  tp.Elevation,
						})
					}
					return result, nil
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
