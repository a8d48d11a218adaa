package utils

// props to: https://stackoverflow.com/a/28058324
func Reverse[S ~[]E, E any](s S) S {
  out := make(S, len(s))
  copy(out, s)

  for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
    out[i], out[j] = out[j], out[i]
  }

  return out
}

// Dedup returns the elements of s in order, dropping repeated values.
func Dedup[S ~[]E, E comparable](s S) S {
  seen := make(map[E]struct{}, len(s))
  out := make(S, 0, len(s))

  for _, e := range s {
    if _, ok := seen[e]; ok {
      continue
    }

    seen[e] = struct{}{}
    out = append(out, e)
  }

  return out
}
