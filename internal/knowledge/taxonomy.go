package knowledge

// Dimension groups relations by the kind of commonsense they express.
type Dimension string

const (
	Attribution Dimension = "attribution"
	Physical    Dimension = "physical"
	Temporal    Dimension = "temporal"
	Causal      Dimension = "causal"
	Social      Dimension = "social"
	Comparison  Dimension = "comparison"
	Other       Dimension = "other"
	// Unknown is reported for relations outside the taxonomy.
	Unknown Dimension = "unknown"
)

// Dimensions lists the taxonomy dimensions in report order.
var Dimensions = []Dimension{Attribution, Physical, Temporal, Causal, Social, Comparison, Other}

type relationSpec struct {
	dimension Dimension
	// positive and negative are templates with {head} and {tail} placeholders.
	positive string
	negative string
}

var relations = map[string]relationSpec{
	"HasProperty": {Attribution, "{head} has {tail} as a property", "{head} does not have {tail} as a property"},
	"CapableOf":   {Attribution, "{head} is capable of {tail}", "{head} is not capable of {tail}"},
	"HasA":        {Attribution, "{head} has {tail}", "{head} does not have {tail}"},
	"HasSubEvent": {Attribution, "{tail} happens as a subevent of {head}", "{tail} does not happen as a subevent of {head}"},
	"HasSubevent": {Attribution, "{tail} happens as a subevent of {head}", "{tail} does not happen as a subevent of {head}"},
	"IsA":         {Attribution, "{head} is a subtype or specific instance of {tail}", "{head} is not a subtype or specific instance of {tail}"},
	"MannerOf":    {Attribution, "{head} is a specific way to do {tail}", "{head} is not a specific way to do {tail}"},
	"DependsOn":   {Attribution, "{head} depends on {tail}", "{head} does not depend on {tail}"},
	"InstanceOf":  {Attribution, "{head} is an instance of {tail}", "{head} is not an instance of {tail}"},
	"CreatedBy":   {Attribution, "{head} is created by {tail}", "{head} is not created by {tail}"},
	"HasContext":  {Attribution, "{head} has context {tail}", "{head} does not have context {tail}"},
	"ObjectUse":   {Physical, "{head} can be used for {tail}", "{head} is not used for {tail}"},
	"PartOf":      {Physical, "{head} is part of {tail}", "{head} is not part of {tail}"},
	"MadeOf":      {Physical, "{head} is made up of {tail}", "{head} is not made up of {tail}"},
	"UsedFor":     {Physical, "{head} is used for {tail}", "{head} is not used for {tail}"},
	"AtLocation":  {Physical, "{head} is located at {tail}", "{head} is not located at {tail}"},
	"LocatedNear": {Physical, "{head} is located near {tail}", "{head} is not located near {tail}"},
	"IsAfter":     {Temporal, "{head}. Before that, {tail}", "{head}. After that, {tail}"},
	"IsBefore":    {Temporal, "{head}. After that, {tail}", "{head}. Before that, {tail}"},
	"IsDuring":    {Temporal, "{head} happens during {tail}", "{head} does not happen during {tail}"},
	"IsSimultaneous": {Temporal, "{head} happens at the same time as {tail}",
		"{head} does not happen at the same time as {tail}"},
	"HappensIn": {Temporal, "{head} happens in {tail}", "{head} does not happen in {tail}"},
	"HasPrerequisite": {Temporal, "In order for {head} to happen, {tail} needs to happen",
		"In order for {head} to happen, {tail} does not need to happen"},
	"Causes":       {Causal, "{head} causes {tail}", "{head} does not cause {tail}"},
	"CausesDesire": {Causal, "{head} causes a desire for {tail}", "{head} does not cause a desire for {tail}"},
	"HinderedBy":   {Causal, "{head} is less likely to happen because of {tail}", "{head} is not less likely to happen because of {tail}"},
	"ObstructedBy": {Causal, "{head} is less likely to happen because of {tail}", "{head} is not less likely to happen because of {tail}"},
	"Implies":      {Causal, "{head} implies {tail}", "{head} does not imply {tail}"},
	"xReason":      {Causal, "{head}. This was done because {tail}", "{head}. Subject did not do this because {tail}"},
	"oEffect":      {Social, "{head}. The effect on others will be {tail}", "{head}. The effect on others will not be {tail}"},
	"oReact":       {Social, "{head}. As a result, others feel {tail}", "{head}. As a result, others do not feel {tail}"},
	"oWant":        {Social, "{head}. After, others will want to {tail}", "{head}. After, others will not want {tail}"},
	"xAttr":        {Social, "{head}. Subject is {tail}", "{head}. Subject is not {tail}"},
	"xEffect":      {Social, "{head}. The effect on the subject will be {tail}", "{head}. The effect on subject will not be {tail}"},
	"xIntent":      {Social, "{head}. Subject did this to {tail}", "{head}. Subject did not do this for {tail}"},
	"xNeed":        {Social, "{head}. Before, subject needs to {tail}", "{head}. Before, Subject does not need to {tail}"},
	"xReact":       {Social, "{head}. subject will be {tail}", "{head}. Subject will not be {tail}"},
	"xWant":        {Social, "{head}. After, subject will want to {tail}", "{head}. After, Subject will not want to {tail}"},
	"MotivatedByGoal": {Social, "{head} is motivated by the goal of {tail}",
		"{head} is not motivated by the goal of {tail}"},
	"Desires":          {Social, "{head} desires {tail}", "{head} does not desire {tail}"},
	"Antonym":          {Comparison, "{head} is the opposite of {tail}", "{head} is not the opposite of {tail}"},
	"Synonym":          {Comparison, "{head} is the same as {tail}", "{head} is not the same as {tail}"},
	"SimilarTo":        {Comparison, "{head} is similar to {tail}", "{head} is not similar to {tail}"},
	"RelatedTo":        {Comparison, "{head} is related to {tail}", "{head} is not related to {tail}"},
	"DistinctFrom":     {Comparison, "{head} is distinct from {tail}", "{head} is not distinct from {tail}"},
	"DefinedAs":        {Comparison, "{head} is defined as {tail}", "{head} is not defined as {tail}"},
	"Other":            {Other, "{head} has some relationship with {tail}", "{head} does not have some relationship with {tail}"},
	"ReceivesAction":   {Other, "{head} receives the action {tail}", "{head} does not receive the action {tail}"},
	"DesireOf":         {Other, "", ""},
	"HasFirstSubevent": {Other, "", ""},
	"HasLastSubevent":  {Other, "", ""},
	"HasPainCharacter": {Other, "", ""},
	"HasPainIntensity": {Other, "", ""},
	"InheritsFrom":     {Other, "", ""},
	"LocationOfAction": {Other, "", ""},
	"SymbolOf":         {Other, "", ""},
	"IsFilledBy":       {Other, "", ""},
}
