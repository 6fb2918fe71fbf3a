// Package format lays out synthesized syntax: it turns a sequence of tokens
// and nested containers into tree nodes with the whitespace leaves a person
// would have typed, indented relative to the surrounding code.
//
// Назначение: раскладка новых узлов (try/catch), которые создаёт fix.
// Не делает: переформатирования существующего кода. Узлы, переданные через
// Writer.Node, вставляются как есть.
// Зависимости: internal/ast.
package format
