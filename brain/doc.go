// Package brain is the retrieval engine: it renders notes into canonical
// text, embeds them and stores them, and answers free-text queries with the
// closest notes.
package brain
