package mcpserver

// LayoutContract describes how the diagram places nodes so that LLM
// consumers can read positions without recomputing them.
const LayoutContract = `# Asteria Layout Contract

The diagram is a left-to-right tree with three columns.

## Columns

| Node type             | x    |
|-----------------------|------|
| ` + "`project`" + `             | 0    |
| ` + "`technicalChallenge`" + `  | 500  |
| ` + "`biologicalModel`" + `     | 1000 |
| ` + "`addBiologicalModel`" + `  | 1000 |

Rows are 120 units apart. The values can be tuned per deployment; ` + "`GET /api/layout`" + `
returns the ones in effect.

## Rows

1. The project node sits at y = 0.
2. Challenges are placed top to bottom in project order. Each challenge starts at
   the current row.
3. A challenge's models are stacked downward from the challenge's row, one row each.
4. One "Add biological model" node follows the last model of every challenge.
5. The next challenge starts after the add node, or one row lower when the
   challenge has no models.

## Nodes and edges

- Node ids are the entity ids as strings. The add node of challenge ` + "`C`" + ` is
  ` + "`add-model-to-C`" + ` and carries ` + "`data.challengeId`" + `.
- Nodes are listed project first, then all challenges, then all models, then all
  add nodes.
- Edges are ` + "`project-P-challenge-C`" + `, ` + "`challenge-C-model-M`" + ` and
  ` + "`challenge-C-add-model`" + `. Every edge is animated and ends in a closed arrow.

## Adding models

Use the ` + "`add_model`" + ` tool with the challenge id and a non-empty name. The new model
appears below the challenge's existing models and the add node moves down one row.
`
