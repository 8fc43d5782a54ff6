package docgen

// Task is one fixed generation job: a prompt template bound to the transcript
// at run time. The task set is static and its order defines the order of the
// returned documents.
type Task struct {
	Key    string
	Title  string
	Prompt string
}

// DefaultTasks returns the production task set, ordered.
func DefaultTasks() []Task {
	return []Task{
		{Key: "study-notes", Title: "LaTeX – notatki", Prompt: studyNotesPrompt},
		{Key: "spoken-script", Title: "LaTeX – zapis mówiony", Prompt: spokenStylePrompt},
	}
}

const latexPreamble = `\documentclass[12pt,a4paper]{article}

\usepackage[polish]{babel}
\usepackage[utf8]{inputenc}
\usepackage[T1]{fontenc}

\usepackage{geometry}
\geometry{margin=2.5cm}

\usepackage{setspace}
\onehalfspacing

\usepackage{microtype}

\usepackage{hyperref}
\hypersetup{
    hidelinks,
    pdfauthor={Notatki z wykładu},
    pdftitle={Notatki z wykładu},
    pdfcreator={LaTeX}
}

\usepackage{enumitem}
\setlist{nosep}

\usepackage{csquotes}

\usepackage{titlesec}
\titleformat{\section}{\normalfont\Large\bfseries}{\thesection.}{0.6em}{}
\titleformat{\subsection}{\normalfont\large\bfseries}{\thesubsection.}{0.5em}{}
\titleformat{\subsubsection}{\normalfont\normalsize\bfseries}{\thesubsubsection.}{0.4em}{}`

const studyNotesPrompt = `You are a language model that converts lecture transcripts into well-formatted LaTeX study notes that can be compiled into a clean, readable PDF.

You will receive a raw transcript of a university lecture. It will be messy: spoken language, repetitions, false starts, small mistakes, and no structure.

Your job:

1. Convert the transcript into a SINGLE LaTeX document that compiles to PDF without modification, is clearly structured, and preserves ALL the meaningful information from the lecture (names, dates, terms, distinctions, examples, historical context, definitions).

2. Organize the material into a small number of logical sections and subsections. Correct obvious transcription errors, fix grammar and punctuation, and join broken sentences. You may paraphrase for clarity, but do not omit important content and do not invent new facts.

3. Use lists (itemize/enumerate) only when they genuinely improve readability; prefer normal paragraphs. The document should read like a well-structured study script, not a bullet-point slide deck.

4. Preserve and highlight key academic details: names of authors and works (titles in \emph{...}), historical periods, dates, definitions, and the lecture's main theses. Use section titles that make topics easy to locate.

5. Output a complete, compilable LaTeX document, starting with \documentclass and ending with \end{document}. Use this preamble and adapt it as needed (the hyperref configuration must keep hidelinks):

` + latexPreamble + `

Begin the body with \title, \author, \date{}, \maketitle, and \tableofcontents followed by \newpage, then the reworked lecture content.

6. Output format requirement (IMPORTANT): your response must contain ONLY the LaTeX source code of the final document. No explanations, no markdown code fences, no placeholders.

The transcript follows between BEGIN_TRANSCRIPT and END_TRANSCRIPT markers. Respond with only the final .tex content.`

const spokenStylePrompt = `You are a language model that converts lecture transcripts into clean, lightly edited LaTeX spoken-style scripts that can be compiled into a PDF.

Unlike a summary, your goal is to preserve the lecturer's voice and wording as much as possible, but without typical spoken disfluencies.

You will receive a raw transcript of a university lecture as it was spoken, containing repetitions, filler words, interrupted sentences, and in-flight corrections.

Your job:

1. Produce a SINGLE LaTeX document that compiles directly to PDF and reads like a fluent, live lecture — without filler sounds, abandoned sentences, or redundant repetitions.

2. Keep the wording as close to the original speech as possible. Do not summarize or shorten the substantive content: keep every piece of information, name, date, concept, example, and meaningful digression. You may merge broken sentences into one correct sentence and take the last, corrected version of a repeated phrase. Do not change the meaning and do not add interpretations that are not in the original.

3. Structure the text as an edited record of a spoken lecture: \section and \subsection headings at clear topic transitions, paragraphs at natural blocks of thought. Keep the spoken character, including direct addresses to the audience, but remove pure verbal noise.

4. Keep all factual material: author names, work titles (in \emph{...}), dates, historical events, definitions, and the main interpretive theses.

5. Output a complete, compilable LaTeX document, starting with \documentclass and ending with \end{document}. Use this preamble and adapt it as needed (the hyperref configuration must keep hidelinks):

` + latexPreamble + `

Begin the body with \title, \author, \date{}, \maketitle, and \tableofcontents followed by \newpage, then the edited lecture record.

6. Output format requirement (IMPORTANT): your response must contain ONLY the LaTeX source code of the final document. No explanations, no markdown code fences, no TODO comments.

The transcript follows between BEGIN_TRANSCRIPT and END_TRANSCRIPT markers. Respond with only the final .tex content.`
