// Package graph persists decoded vehicles into a Neo4j graph of
// Make → Model → Vehicle nodes, enabling "vehicles like this" queries across
// everything the service has decoded.
package graph

import (
	"context"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphStore provides graph operations for decoded vehicles.
type GraphStore struct {
	driver neo4j.DriverWithContext
}

// New creates a GraphStore.
func New(driver neo4j.DriverWithContext) *GraphStore {
	return &GraphStore{driver: driver}
}

// SaveDecoded upserts the Make, Model, and Vehicle nodes for one decode
// summary and links them. Identifiers are lowercased so repeated decodes of
// the same vehicle merge onto one node.
func (g *GraphStore) SaveDecoded(ctx context.Context, vin, make_, model, year string) error {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MERGE (mk:Make {id: $makeID}) SET mk.name = $make
	           MERGE (m:Model {id: $modelID}) SET m.name = $model, m.make_id = $makeID
	           MERGE (mk)-[:HAS_MODEL]->(m)
	           MERGE (v:Vehicle {vin: $vin}) SET v.year = $year, v.model_id = $modelID
	           MERGE (m)-[:HAS_VEHICLE]->(v)`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"vin":     vin,
		"make":    make_,
		"model":   model,
		"year":    year,
		"makeID":  nodeID(make_),
		"modelID": nodeID(make_, model),
	})
	return err
}

// VehiclesByMake returns the VINs recorded for a make.
func (g *GraphStore) VehiclesByMake(ctx context.Context, make_ string) ([]string, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (:Make {id: $makeID})-[:HAS_MODEL]->(:Model)-[:HAS_VEHICLE]->(v:Vehicle)
	           RETURN v.vin AS vin ORDER BY vin`
	result, err := sess.Run(ctx, cypher, map[string]any{"makeID": nodeID(make_)})
	if err != nil {
		return nil, err
	}

	var vins []string
	for result.Next(ctx) {
		if vin, ok := result.Record().Get("vin"); ok {
			if s, ok := vin.(string); ok {
				vins = append(vins, s)
			}
		}
	}
	return vins, result.Err()
}

// SiblingVehicles returns other VINs of the same model, for "vehicles like
// this" lookups.
func (g *GraphStore) SiblingVehicles(ctx context.Context, vin string) ([]string, error) {
	sess := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := `MATCH (v:Vehicle {vin: $vin})<-[:HAS_VEHICLE]-(m:Model)-[:HAS_VEHICLE]->(other:Vehicle)
	           WHERE other.vin <> $vin
	           RETURN other.vin AS vin ORDER BY vin`
	result, err := sess.Run(ctx, cypher, map[string]any{"vin": vin})
	if err != nil {
		return nil, err
	}

	var vins []string
	for result.Next(ctx) {
		if rec, ok := result.Record().Get("vin"); ok {
			if s, ok := rec.(string); ok {
				vins = append(vins, s)
			}
		}
	}
	return vins, result.Err()
}

// nodeID builds a stable lowercase identifier from name parts.
func nodeID(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "/")
}
