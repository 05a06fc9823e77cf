package openai

import "fmt"

const imageAnalysisSchema = `{
  "type": "object",
  "properties": {
    "imageSummary": {"type": "string"},
    "imageType": {"type": "string", "enum": ["chart", "diagram", "text", "table", "image"]},
    "imageData": {
      "type": "object",
      "properties": {
        "chartData": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "chartType": {"type": "string"},
              "title": {"type": "string"},
              "series": {
                "type": "array",
                "items": {
                  "type": "object",
                  "properties": {
                    "name": {"type": "string"},
                    "data": {
                      "type": "array",
                      "items": {
                        "type": "object",
                        "properties": {
                          "label": {"type": "string"},
                          "value": {"type": ["number", "null"]}
                        },
                        "required": ["label"]
                      }
                    }
                  },
                  "required": ["data"]
                }
              },
              "xAxisLabel": {"type": "string"},
              "yAxisLabel": {"type": "string"},
              "notes": {"type": "string"}
            },
            "required": ["chartType", "series"]
          }
        },
        "tableData": {
          "type": "array",
          "items": {"type": "object"}
        }
      }
    }
  },
  "required": ["imageSummary", "imageType"]
}`

const imageAnalysisPrompt = `You are an expert visual document analyst.
Given an image extracted from a document, analyze it carefully and provide the following structured information

Output ONLY valid JSON which complies with the schema given below. Start your response directly with the
opening brace { and end with the closing brace }.

%s

Rules:
- imageSummary is a short factual description of what the image shows.
- Fill chartData only for charts and tableData only for tables; omit both otherwise.
- Use null for a data point value you cannot read.`

const qaResponseSchema = `{
  "type": "object",
  "properties": {
    "curated_qas": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "question": {"type": "string"},
          "answer": {"type": "string"},
          "source_type": {"type": "string", "enum": ["text", "table", "image"]},
          "reference": {
            "type": "object",
            "properties": {"section": {"type": "string"}},
            "required": ["section"]
          }
        },
        "required": ["question", "answer", "source_type", "reference"]
      }
    }
  },
  "required": ["curated_qas"]
}`

const qaPrompt = `You are a professional assistant that helps vendors respond to RFPs by extracting valuable historical question-answer pairs from existing RFP documents.
Focus on extracting:

Explicit questions asked in the document and their corresponding answers.

Implicit Q&A where the text describes a requirement and the vendor's response or approach can be inferred.

Extract reusable question-answer pairs that would help a company draft new responses to similar RFPs in the future.

## Instructions
For the provided page, extract relevant question-answer (Q&A) pairs if any exist. Each Q&A should be:

- Concise and standalone.
- Actionable or informative for RFP drafting.
- Preferably based on clearly identifiable information from the text (not invented).

Output ONLY valid JSON which complies with this schema:

%s

If the page holds nothing worth keeping, return {"curated_qas": []}.`

func buildImagePrompt(hint string) string {
	prompt := fmt.Sprintf(imageAnalysisPrompt, imageAnalysisSchema)
	if hint != "" {
		prompt += "\n\nContext of the document: " + hint
	}
	return prompt
}

func buildQAPrompt() string {
	return fmt.Sprintf(qaPrompt, qaResponseSchema)
}
